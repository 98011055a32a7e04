package synapse

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/toyz/synapse/pkg/synapse/schema"
)

// Pipe transforms or validates one handler argument
type Pipe interface {
	Transform(value any, meta ArgumentMetadata) (any, error)
}

// PipeFunc adapts a function to Pipe
type PipeFunc func(value any, meta ArgumentMetadata) (any, error)

func (f PipeFunc) Transform(value any, meta ArgumentMetadata) (any, error) {
	return f(value, meta)
}

// applyPipes folds value through pipes in order
func applyPipes(value any, meta ArgumentMetadata, pipes []Pipe) (any, error) {
	for _, p := range pipes {
		out, err := p.Transform(value, meta)
		if err != nil {
			return nil, err
		}
		value = out
	}
	return value, nil
}

func argName(meta ArgumentMetadata) string {
	if meta.Data != "" {
		return meta.Data
	}
	return string(meta.Type)
}

// ParseIntPipe parses a string argument to int
type ParseIntPipe struct{}

func (ParseIntPipe) Transform(value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", argName(meta))
	}
	return i, nil
}

// ParseFloatPipe parses a string argument to float64
type ParseFloatPipe struct{}

func (ParseFloatPipe) Transform(value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", argName(meta))
	}
	return f, nil
}

// ParseBoolPipe parses a string argument to bool
type ParseBoolPipe struct{}

func (ParseBoolPipe) Transform(value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("%s must be a boolean", argName(meta))
}

// ParseUUIDPipe parses a string argument to uuid.UUID
type ParseUUIDPipe struct{}

func (ParseUUIDPipe) Transform(value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be a UUID", argName(meta))
	}
	return id, nil
}

// DefaultValuePipe replaces a missing or empty argument with Value
type DefaultValuePipe struct {
	Value any
}

func (p DefaultValuePipe) Transform(value any, _ ArgumentMetadata) (any, error) {
	if value == nil {
		return p.Value, nil
	}
	if s, ok := value.(string); ok && s == "" {
		return p.Value, nil
	}
	return value, nil
}

// TrimPipe trims surrounding whitespace from string arguments
type TrimPipe struct{}

func (TrimPipe) Transform(value any, _ ArgumentMetadata) (any, error) {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return value, nil
}

// ValidationPipe validates struct arguments with their `validate` tags
type ValidationPipe struct{}

func (ValidationPipe) Transform(value any, _ ArgumentMetadata) (any, error) {
	if value == nil {
		return value, nil
	}
	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return value, nil
	}
	if err := schema.ValidateStruct(value); err != nil {
		return nil, err
	}
	return value, nil
}
