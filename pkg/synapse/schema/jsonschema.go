package schema

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

type jsonSchema struct {
	id     string
	schema *jsonschema.Schema
}

// JSON compiles a JSON Schema document. Values are validated in their generic
// JSON form and passed on unchanged.
func JSON(id, document string) (Schema, error) {
	compiled, err := compile(id, document)
	if err != nil {
		return nil, err
	}
	return &jsonSchema{id: id, schema: compiled}, nil
}

// MustJSON is JSON that panics on an invalid document
func MustJSON(id, document string) Schema {
	s, err := JSON(id, document)
	if err != nil {
		panic(err)
	}
	return s
}

type typedJSONSchema[T any] struct {
	*jsonSchema
}

// JSONAs is JSON that converts the validated value to T
func JSONAs[T any](id, document string) (Schema, error) {
	compiled, err := compile(id, document)
	if err != nil {
		return nil, err
	}
	return &typedJSONSchema[T]{&jsonSchema{id: id, schema: compiled}}, nil
}

func (s *typedJSONSchema[T]) Validate(value any) (any, error) {
	generic, err := s.jsonSchema.Validate(value)
	if err != nil {
		return nil, err
	}
	var out T
	if err := convert(generic, &out); err != nil {
		return nil, &Error{Fields: []FieldError{{Rule: "type", Message: err.Error()}}}
	}
	return out, nil
}

func compile(id, document string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	if id == "" {
		id = "schema.json"
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	if err := compiler.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

func (s *jsonSchema) Validate(value any) (any, error) {
	generic, err := toGeneric(value)
	if err != nil {
		return nil, &Error{Fields: []FieldError{{Rule: "type", Message: err.Error()}}}
	}

	if err := s.schema.Validate(generic); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, &Error{Fields: []FieldError{{Rule: "schema", Message: err.Error()}}}
		}
		var out Error
		collect(verr, &out)
		out.Sort()
		return nil, &out
	}
	return generic, nil
}

// collect flattens the error tree into its leaves
func collect(verr *jsonschema.ValidationError, out *Error) {
	if len(verr.Causes) == 0 {
		field := strings.Join(verr.InstanceLocation, ".")
		msg := verr.ErrorKind.LocalizedString(printer)
		if field != "" {
			msg = field + ": " + msg
		}
		rule := strings.Join(verr.ErrorKind.KeywordPath(), "/")
		out.Add(field, rule, msg)
		return
	}
	for _, cause := range verr.Causes {
		collect(cause, out)
	}
}

func toGeneric(value any) (any, error) {
	switch value.(type) {
	case nil, bool, float64, string, []any, map[string]any:
		return value, nil
	}
	var generic any
	if err := convert(value, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func convert(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
