// Package apperror defines the domain error taxonomy shared by the service
// and handler layers.
//
// Services return these errors; handlers translate them into HTTP status
// codes. Nothing in here knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrAccessDenied = errors.New("access denied")
	ErrExternal     = errors.New("external service error")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDuplicate wraps ErrValidation: a duplicate is a kind of invalid
	// input, so errors.Is(err, ErrValidation) holds for both.
	ErrDuplicate = fmt.Errorf("%w: duplicate", ErrValidation)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports that a record with the same natural key already exists
// for the caller, e.g. a second game titled "Hades II" in one library.
func Duplicate(resource, field, value string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Field:   field,
	}
}

// AccessDenied returns an AppError indicating the record exists but the
// caller may not read or change it. HTTP handlers map this to 403.
func AccessDenied(message string) *AppError {
	return &AppError{
		Err:     ErrAccessDenied,
		Message: message,
	}
}

// Unauthorized means no usable identity came with the request.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// External wraps a failure from a third-party collaborator such as the
// media host. The cause is kept for logs; the message is safe to return.
func External(service string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %w", ErrExternal, service, cause),
		Message: fmt.Sprintf("%s request failed", service),
	}
}
