// Package schema provides the validation schemas attached to body and query parameters.
package schema

import (
	"reflect"
	"sort"
	"strings"
)

// Schema validates a decoded value and may return a coerced replacement
type Schema interface {
	Validate(value any) (any, error)
}

// Targeted is implemented by schemas that want the body decoded into a specific type
type Targeted interface {
	Target() reflect.Type
}

// FieldError is one failed rule
type FieldError struct {
	Field   string // dotted path using JSON names, empty for the root value
	Rule    string // validator tag or JSON Schema keyword
	Message string // human-readable message, already prefixed by the field
}

// Error is returned when validation fails; its message is the field-error summary
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Add appends a field error
func (e *Error) Add(field, rule, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule, Message: message})
}

// Sort orders the errors by field so summaries are stable
func (e *Error) Sort() {
	sort.SliceStable(e.Fields, func(i, j int) bool {
		return e.Fields[i].Field < e.Fields[j].Field
	})
}

// Func adapts a plain function to Schema
type Func func(value any) (any, error)

func (f Func) Validate(value any) (any, error) { return f(value) }
