package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// InvalidState creates a 409 error for guard violations
func InvalidState(message string, err error) *AppError {
	return &AppError{
		Code:    "INVALID_STATE",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Domain-specific errors

var (
	ErrTripNotFound   = NotFound("Trip not found", nil)
	ErrDriverNotFound = NotFound("Driver not found", nil)

	ErrNoDriversFound     = NotFound("No drivers found within the time limit", nil)
	ErrDriverUnavailable  = Conflict("Driver is not available", nil)
	ErrTripAlreadyHasStop = Conflict("Trip already has an extra stop", nil)

	ErrInvalidTransition  = InvalidState("Invalid trip status transition", nil)
	ErrInvalidCoordinates = BadRequest("Invalid coordinates", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError, falling back to a
// generic internal error so raw failures never reach the client.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
