package errors

import (
	"fmt"
	"net/http"
)

// Error codes rendered in the "error.code" field of JSON responses
const (
	CodeNotFound     = "NOT_FOUND"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeStorage      = "STORAGE_ERROR"
	CodeRateLimit    = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
	CodeServerPanic  = "SERVER_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeBodyTooLarge = "BODY_TOO_LARGE"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithCause records the error that triggered this one
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeBadRequest, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(message string) *AppError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

// NewUpstreamError creates a 502 Bad Gateway error for inference backend failures
func NewUpstreamError(message string) *AppError {
	return NewError(http.StatusBadGateway, CodeUpstream, message)
}

// NewStorageError creates a 500 error for failed reads or writes of the data directory
func NewStorageError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeStorage, message)
}

// NewRateLimitError creates a 429 Too Many Requests error
func NewRateLimitError(message string) *AppError {
	return NewError(http.StatusTooManyRequests, CodeRateLimit, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeInternal, message)
}
