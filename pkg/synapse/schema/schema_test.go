package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createCat struct {
	Name  string `json:"name" validate:"required"`
	Age   int    `json:"age" validate:"gte=0,lte=30"`
	Breed string `json:"breed,omitempty" validate:"omitempty,oneof=tabby siamese"`
}

func TestStructSchema(t *testing.T) {
	s := Struct[createCat]()

	targeted, ok := s.(Targeted)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(createCat{}), targeted.Target())

	out, err := s.Validate(createCat{Name: "Tom", Age: 3})
	require.NoError(t, err)
	assert.Equal(t, createCat{Name: "Tom", Age: 3}, out)
}

func TestStructSchemaErrors(t *testing.T) {
	_, err := Struct[createCat]().Validate(createCat{Age: 40, Breed: "lion"})
	require.Error(t, err)

	var serr *Error
	require.True(t, errors.As(err, &serr))
	require.Len(t, serr.Fields, 3)

	assert.Equal(t, "age", serr.Fields[0].Field)
	assert.Equal(t, "breed", serr.Fields[1].Field)
	assert.Equal(t, "name", serr.Fields[2].Field)
	assert.Equal(t, "required", serr.Fields[2].Rule)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "breed must be one of [tabby siamese]")
}

func TestValidateStructPointer(t *testing.T) {
	assert.NoError(t, ValidateStruct(&createCat{Name: "x"}))
	assert.Error(t, ValidateStruct(&createCat{}))
}

const catDocument = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age": {"type": "integer", "minimum": 0}
	}
}`

func TestJSONSchema(t *testing.T) {
	s, err := JSON("cat.json", catDocument)
	require.NoError(t, err)

	out, err := s.Validate(map[string]any{"name": "Tom", "age": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Tom", "age": float64(2)}, out)
}

func TestJSONSchemaMissingField(t *testing.T) {
	s := MustJSON("cat.json", catDocument)

	_, err := s.Validate(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	_, err = s.Validate(map[string]any{"name": "Tom", "age": float64(-1)})
	require.Error(t, err)

	var serr *Error
	require.True(t, errors.As(err, &serr))
	require.Len(t, serr.Fields, 1)
	assert.Equal(t, "age", serr.Fields[0].Field)
}

func TestJSONSchemaAcceptsStructs(t *testing.T) {
	s := MustJSON("cat.json", catDocument)
	_, err := s.Validate(createCat{Name: "Tom"})
	assert.NoError(t, err)
}

func TestJSONAs(t *testing.T) {
	s, err := JSONAs[createCat]("cat.json", catDocument)
	require.NoError(t, err)

	out, err := s.Validate(map[string]any{"name": "Tom", "age": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, createCat{Name: "Tom", Age: 4}, out)
}

func TestInvalidDocument(t *testing.T) {
	_, err := JSON("bad.json", `{"type": `)
	assert.Error(t, err)
	assert.Panics(t, func() { MustJSON("bad.json", `not json`) })
}

func TestFunc(t *testing.T) {
	s := Func(func(v any) (any, error) { return "x", nil })
	out, err := s.Validate(1)
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}
