package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ErrNotFound builds a 404 AppError.
func ErrNotFound(code, message string) *AppError {
	return NewAppError(code, message, http.StatusNotFound, nil)
}

// ErrInvalid builds a 400 AppError.
func ErrInvalid(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadRequest, nil)
}

// ErrConflict builds a 409 AppError.
func ErrConflict(code, message string) *AppError {
	return NewAppError(code, message, http.StatusConflict, nil)
}

// ErrForbidden builds a 403 AppError.
func ErrForbidden(code, message string) *AppError {
	return NewAppError(code, message, http.StatusForbidden, nil)
}

// ErrUnavailable builds a 503 AppError wrapping an upstream failure.
func ErrUnavailable(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusServiceUnavailable, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
