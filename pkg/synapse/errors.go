package synapse

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies errors raised by the dispatch pipeline
type ErrorKind int

const (
	// KindHandler is an error raised by a handler or interceptor; it goes through exception filters
	KindHandler ErrorKind = iota
	// KindRouteNotFound is raised when no route matches the method and path
	KindRouteNotFound
	// KindValidation is raised by parameter resolution, schemas and pipes
	KindValidation
	// KindResolution is raised when a matched route cannot be bound to a controller or method
	KindResolution
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindHandler:
		return "handler"
	case KindRouteNotFound:
		return "route_not_found"
	case KindValidation:
		return "validation"
	case KindResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// HttpError represents an HTTP error with a specific status code and message
type HttpError struct {
	StatusCode int       `json:"statusCode" msgpack:"statusCode"`
	Message    string    `json:"message" msgpack:"message"`
	Details    any       `json:"details,omitempty" msgpack:"details,omitempty"`
	Kind       ErrorKind `json:"-" msgpack:"-"`
	Cause      error     `json:"-" msgpack:"-"`
}

// Error implements the error interface; the message is what clients see
func (e *HttpError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *HttpError) Unwrap() error {
	return e.Cause
}

// NewHttpError creates a new HttpError with the given status code and message
func NewHttpError(statusCode int, message string) *HttpError {
	return &HttpError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewHttpErrorWithDetails creates a new HttpError with additional details
func NewHttpErrorWithDetails(statusCode int, message string, details any) *HttpError {
	return &HttpError{
		StatusCode: statusCode,
		Message:    message,
		Details:    details,
	}
}

// NewRouteNotFound creates the 404 raised when route lookup misses
func NewRouteNotFound(method, path string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("Route not found: %s %s", method, path),
		Kind:       KindRouteNotFound,
	}
}

// NewValidationError creates a 400 raised by parameter resolution
func NewValidationError(message string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Kind:       KindValidation,
	}
}

// NewResolutionError creates a 500 raised when a route cannot be bound to its controller
func NewResolutionError(message string, cause error) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Message:    message,
		Kind:       KindResolution,
		Cause:      cause,
	}
}

// KindOf reports the kind of err; errors that are not an *HttpError are handler errors
func KindOf(err error) ErrorKind {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Kind
	}
	return KindHandler
}

// Common HTTP error constructors for convenience

// ErrBadRequest creates a 400 Bad Request error
func ErrBadRequest(message string) *HttpError {
	return NewHttpError(http.StatusBadRequest, message)
}

// ErrBadRequestWithDetails creates a 400 Bad Request error with details
func ErrBadRequestWithDetails(message string, details any) *HttpError {
	return NewHttpErrorWithDetails(http.StatusBadRequest, message, details)
}

// ErrUnauthorized creates a 401 Unauthorized error
func ErrUnauthorized(message string) *HttpError {
	return NewHttpError(http.StatusUnauthorized, message)
}

// ErrForbidden creates a 403 Forbidden error
func ErrForbidden(message string) *HttpError {
	return NewHttpError(http.StatusForbidden, message)
}

// ErrNotFound creates a 404 Not Found error
func ErrNotFound(message string) *HttpError {
	return NewHttpError(http.StatusNotFound, message)
}

// ErrConflict creates a 409 Conflict error
func ErrConflict(message string) *HttpError {
	return NewHttpError(http.StatusConflict, message)
}

// ErrUnprocessableEntity creates a 422 Unprocessable Entity error
func ErrUnprocessableEntity(message string) *HttpError {
	return NewHttpError(http.StatusUnprocessableEntity, message)
}

// ErrInternalServerError creates a 500 Internal Server Error
func ErrInternalServerError(message string) *HttpError {
	return NewHttpError(http.StatusInternalServerError, message)
}
