// Package apperr defines the error kinds every operation reports and the
// HTTP status each one maps to.
package apperr

import (
	"errors"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication error")
	ErrNotFound   = errors.New("not found")
	ErrUpload     = errors.New("upload error")
	ErrInternal   = errors.New("internal error")
)

type Error struct {
	Kind    error
	Code    int
	Message string
	Errors  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// WithCause attaches the underlying error; it is logged, never rendered.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func Validation(msg string, details ...string) *Error {
	return &Error{Kind: ErrValidation, Code: http.StatusBadRequest, Message: msg, Errors: details}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Code: http.StatusConflict, Message: msg}
}

// Unauthorized is the 401 flavour of ErrAuth: missing, invalid or stale tokens.
func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrAuth, Code: http.StatusUnauthorized, Message: msg}
}

// BadCredentials is the 400 flavour of ErrAuth: a wrong password.
func BadCredentials(msg string) *Error {
	return &Error{Kind: ErrAuth, Code: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Code: http.StatusNotFound, Message: msg}
}

func Upload(code int, msg string) *Error {
	return &Error{Kind: ErrUpload, Code: code, Message: msg}
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: ErrInternal, Code: http.StatusInternalServerError, Message: msg, Err: cause}
}

// StatusCode falls back to 500 for anything that is not an *Error.
func StatusCode(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != 0 {
		return ae.Code
	}
	return http.StatusInternalServerError
}
