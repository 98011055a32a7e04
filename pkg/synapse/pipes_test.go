package synapse

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPipes(t *testing.T) {
	meta := ArgumentMetadata{Type: PathParam, Data: "id"}
	id := uuid.New()

	tests := []struct {
		name    string
		pipe    Pipe
		in      any
		want    any
		wantErr string
	}{
		{"int", ParseIntPipe{}, "42", 42, ""},
		{"int invalid", ParseIntPipe{}, "4x", nil, "id must be an integer"},
		{"int passthrough", ParseIntPipe{}, 7, 7, ""},
		{"float", ParseFloatPipe{}, "1.5", 1.5, ""},
		{"float invalid", ParseFloatPipe{}, "x", nil, "id must be a number"},
		{"bool yes", ParseBoolPipe{}, "yes", true, ""},
		{"bool zero", ParseBoolPipe{}, "0", false, ""},
		{"bool invalid", ParseBoolPipe{}, "maybe", nil, "id must be a boolean"},
		{"uuid", ParseUUIDPipe{}, id.String(), id, ""},
		{"uuid invalid", ParseUUIDPipe{}, "nope", nil, "id must be a UUID"},
		{"default on nil", DefaultValuePipe{Value: 10}, nil, 10, ""},
		{"default on empty", DefaultValuePipe{Value: "x"}, "", "x", ""},
		{"default keeps value", DefaultValuePipe{Value: "x"}, "y", "y", ""},
		{"trim", TrimPipe{}, "  a b ", "a b", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pipe.Transform(tt.in, meta)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyPipes_FoldsInOrder(t *testing.T) {
	got, err := applyPipes(" 12 ", ArgumentMetadata{Type: QueryParam, Data: "n"}, []Pipe{TrimPipe{}, ParseIntPipe{}})
	require.NoError(t, err)
	assert.Equal(t, 12, got)

	_, err = applyPipes(" 12 ", ArgumentMetadata{Type: QueryParam, Data: "n"}, []Pipe{ParseIntPipe{}, TrimPipe{}})
	assert.EqualError(t, err, "n must be an integer")
}

func TestValidationPipe(t *testing.T) {
	type dto struct {
		Name string `json:"name" validate:"required"`
	}

	_, err := ValidationPipe{}.Transform(&dto{}, ArgumentMetadata{Type: BodyParam})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	v, err := ValidationPipe{}.Transform(dto{Name: "a"}, ArgumentMetadata{Type: BodyParam})
	require.NoError(t, err)
	assert.Equal(t, dto{Name: "a"}, v)

	v, err = ValidationPipe{}.Transform("not a struct", ArgumentMetadata{})
	require.NoError(t, err)
	assert.Equal(t, "not a struct", v)
}
