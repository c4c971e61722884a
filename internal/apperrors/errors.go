// Package apperrors provides the error type surfaced to API callers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in API error bodies.
const (
	CodeTemplateNotFound    = "TEMPLATE_NOT_FOUND"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	CodeExtractionFailed    = "EXTRACTION_FAILED"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeIndexUnavailable    = "INDEX_UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is a structured application error with HTTP status and error code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "TEMPLATE_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// HTTPStatus is the corresponding HTTP status code.
	HTTPStatus int `json:"-"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// NotFound creates a 404 error.
func NotFound(code, message string) *AppError {
	return New(code, message, http.StatusNotFound)
}

// BadRequest creates a 400 error.
func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

// Internal creates a 500 error.
func Internal(code, message string) *AppError {
	return New(code, message, http.StatusInternalServerError)
}

// TemplateNotFound is returned when no stored template satisfies a drafting request.
func TemplateNotFound() *AppError {
	return NotFound(CodeTemplateNotFound, "no suitable template found")
}

// InvalidRequest reports a malformed request.
func InvalidRequest(message string) *AppError {
	return BadRequest(CodeInvalidRequest, message)
}

// ExtractionFailed wraps a failure of the structured extraction service.
func ExtractionFailed(err error) *AppError {
	return Wrap(err, CodeExtractionFailed, "failed to extract a template from the document", http.StatusBadGateway)
}

// StoreUnavailable wraps a template store failure.
func StoreUnavailable(err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, "template store unavailable", http.StatusInternalServerError)
}

// IndexUnavailable wraps a similarity index or embedding failure during matching.
func IndexUnavailable(err error) *AppError {
	return Wrap(err, CodeIndexUnavailable, "template search unavailable", http.StatusServiceUnavailable)
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
