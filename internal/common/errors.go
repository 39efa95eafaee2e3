package common

import (
	"errors"
	"net/http"
)

// Error codes shared across the API surface.
const (
	CodeConfiguration = "CONFIGURATION"
	CodeValidation    = "VALIDATION"
	CodeCarrier       = "CARRIER"
	CodeInternal      = "INTERNAL"
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

// NewConfigurationError marks missing or invalid settings. Surfacing one at
// request time means the process was started with a broken environment.
func NewConfigurationError(message string, err error) *AppError {
	return NewAppError(CodeConfiguration, message, http.StatusInternalServerError, err)
}

// NewValidationError marks bad caller input.
func NewValidationError(message string) *AppError {
	return NewAppError(CodeValidation, message, http.StatusBadRequest, nil)
}

// NewCarrierError marks a failed upstream carrier exchange: auth failures,
// transport errors, timeouts, non-2xx replies and malformed bodies.
func NewCarrierError(message string, err error) *AppError {
	return NewAppError(CodeCarrier, message, http.StatusBadGateway, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
