package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeUnreachable ErrorType = "UNREACHABLE"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// Layer represents the application layer where the error occurred
type Layer string

const (
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerInfrastructure Layer = "infrastructure"
)

// AppError represents an error with category and layer metadata.
type AppError struct {
	Type      ErrorType
	Message   string
	Err       error
	Layer     Layer
	Timestamp time.Time
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Layer, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Layer, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the error type
func (e *AppError) GetErrorType() ErrorType {
	return e.Type
}

// New creates a new AppError.
func New(layer Layer, errorType ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:      errorType,
		Message:   message,
		Err:       err,
		Layer:     layer,
		Timestamp: time.Now().UTC(),
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errorType
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUnreachable:
		return http.StatusBadGateway
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
