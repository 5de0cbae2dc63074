package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// stageFile copies a multipart file into dir and returns its path, or "" when
// the field is absent. The media store removes the file after uploading it.
func stageFile(c echo.Context, field, dir string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", field, err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	dst, err := os.CreateTemp(dir, field+"-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("stage %s: %w", field, err)
	}
	return dst.Name(), nil
}

// unstage removes leftovers when a request fails before the upload runs.
func unstage(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}
