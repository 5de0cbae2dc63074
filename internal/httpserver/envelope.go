package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/pkg/logging"
)

// Envelope wraps every successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type ErrorBody struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func respond(c echo.Context, code int, data any, msg string) error {
	if data == nil {
		data = echo.Map{}
	}
	return c.JSON(code, Envelope{
		StatusCode: code,
		Data:       data,
		Message:    msg,
		Success:    code < http.StatusBadRequest,
	})
}

// ErrorHandler renders every failure as an ErrorBody. Causes of 5xx errors
// are logged and never sent to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	l := logging.FromContext(c.Request().Context())

	code := http.StatusInternalServerError
	body := ErrorBody{Message: "Internal server error"}

	var (
		ae *apperr.Error
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ae):
		code = ae.Code
		body.Message = ae.Message
		body.Errors = ae.Errors
		if code >= http.StatusInternalServerError {
			l.Error("request_failed", "status", code, "error", err)
		}
	case errors.As(err, &he):
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = fmt.Sprint(he.Message)
		}
	default:
		l.Error("request_failed", "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		l.Error("error_response_failed", "error", err)
	}
}
