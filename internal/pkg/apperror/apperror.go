package apperror

import (
	"errors"
	"net/http"
)

// AppError carries the HTTP status a failure should surface as, a user-facing
// message, and optionally the error that caused it.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // Underlying cause, never rendered to clients
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
// Wrapping a sentinel keeps errors.Is(result, sentinel) true while allowing a
// more specific message.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StatusCode reports the HTTP status of the first AppError in err's chain,
// or 500 when there is none.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
