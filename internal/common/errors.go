package common

import (
	"errors"
	"net/http"
)

// CodeValidation marks caller-input errors that are surfaced immediately
// and never retried.
const CodeValidation = "VALIDATION"

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

// NewValidationError constructs an AppError for a caller-input problem.
func NewValidationError(message string) *AppError {
	return NewAppError(CodeValidation, message, http.StatusUnprocessableEntity, nil)
}

// IsValidationError reports whether the error is a caller-input problem.
func IsValidationError(err error) bool {
	var target *AppError
	return errors.As(err, &target) && target.Code == CodeValidation
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
