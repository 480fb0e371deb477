// Package errors defines the sentinel errors shared by every service and the
// AppError wrapper that carries an HTTP status code alongside a message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPatternSyntax       = errors.New("malformed pattern")
	ErrBookNotFound        = errors.New("book not found")
	ErrBookExists          = errors.New("book already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error chain to the status code the HTTP adapters
// should answer with. An explicit AppError status wins over sentinel matching.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrPatternSyntax), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBookExists), errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message that is safe to show to API callers. Only
// client errors expose their details; everything else collapses to a generic
// message.
func PublicMessage(err error, fallback string) string {
	if HTTPStatusCode(err) < http.StatusInternalServerError {
		return err.Error()
	}
	return fallback
}
