package synapse

import (
	"errors"
	"net/http"
	"reflect"
)

// ExceptionFilter converts an error into a response
type ExceptionFilter interface {
	Catch(err error, host *ExecutionContext) (*Response, error)
}

// ExceptionFilterFunc adapts a function to ExceptionFilter
type ExceptionFilterFunc func(err error, host *ExecutionContext) (*Response, error)

func (f ExceptionFilterFunc) Catch(err error, host *ExecutionContext) (*Response, error) {
	return f(err, host)
}

// TypedFilter is implemented by filters that only handle some error types.
// A filter that does not implement it, or lists no types, catches everything.
type TypedFilter interface {
	ExceptionFilter
	CatchTypes() []reflect.Type
}

type typedFilter struct {
	ExceptionFilter
	types []reflect.Type
}

func (f *typedFilter) CatchTypes() []reflect.Type {
	return f.types
}

// Catch restricts f to errors matching E via errors.As. Wrapping again adds more types.
func Catch[E error](f ExceptionFilter) ExceptionFilter {
	t := TypeToken[E]()
	if tf, ok := f.(*typedFilter); ok {
		return &typedFilter{ExceptionFilter: tf.ExceptionFilter, types: append(append([]reflect.Type(nil), tf.types...), t)}
	}
	return &typedFilter{ExceptionFilter: f, types: []reflect.Type{t}}
}

// CatchFunc is Catch for a plain function
func CatchFunc[E error](fn func(err E, host *ExecutionContext) (*Response, error)) ExceptionFilter {
	return Catch[E](ExceptionFilterFunc(func(err error, host *ExecutionContext) (*Response, error) {
		var target E
		errors.As(err, &target)
		return fn(target, host)
	}))
}

// FilterMatches reports whether f applies to err
func FilterMatches(f ExceptionFilter, err error) bool {
	tf, ok := f.(TypedFilter)
	if !ok {
		return true
	}
	types := tf.CatchTypes()
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		target := reflect.New(t)
		if errors.As(err, target.Interface()) {
			return true
		}
	}
	return false
}

// SelectFilter returns the first filter in order that applies to err, or nil
func SelectFilter(err error, filters []ExceptionFilter) ExceptionFilter {
	for _, f := range filters {
		if f != nil && FilterMatches(f, err) {
			return f
		}
	}
	return nil
}

// DefaultErrorResponse renders err when no filter applies. An *HttpError keeps its
// status and message; anything else is a generic 500.
func DefaultErrorResponse(err error) *Response {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return ErrorResponse(httpErr)
	}
	return ErrorResponse(NewHttpError(http.StatusInternalServerError, "Internal server error"))
}

// handleException dispatches err to the first matching filter. A filter that
// fails or returns no response falls back to the generic 500.
func handleException(err error, host *ExecutionContext, filters []ExceptionFilter) (resp *Response) {
	f := SelectFilter(err, filters)
	if f == nil {
		return DefaultErrorResponse(err)
	}

	defer func() {
		if r := recover(); r != nil {
			host.Logger().Sugar().Errorw("exception filter panicked", "panic", r)
			resp = ErrorResponse(NewHttpError(http.StatusInternalServerError, "Internal server error"))
		}
	}()

	resp, ferr := f.Catch(err, host)
	if ferr != nil || resp == nil {
		if ferr != nil {
			host.Logger().Sugar().Errorw("exception filter failed", "error", ferr)
		}
		return ErrorResponse(NewHttpError(http.StatusInternalServerError, "Internal server error"))
	}
	return resp
}
