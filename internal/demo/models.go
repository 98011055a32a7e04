package demo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cat is the resource served by the cats module
type Cat struct {
	ID        uuid.UUID `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	Age       int       `json:"age" msgpack:"age"`
	Breed     string    `json:"breed,omitempty" msgpack:"breed,omitempty"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// CreateCatDto is validated with struct tags
type CreateCatDto struct {
	Name  string `json:"name" validate:"required,min=1,max=64"`
	Age   int    `json:"age" validate:"gte=0,lte=40"`
	Breed string `json:"breed" validate:"omitempty,max=64"`
}

// UpdateCatDto is validated with a JSON Schema document; absent fields keep their value
type UpdateCatDto struct {
	Name  *string `json:"name,omitempty"`
	Age   *int    `json:"age,omitempty"`
	Breed *string `json:"breed,omitempty"`
}

const updateCatSchema = `{
	"type": "object",
	"additionalProperties": false,
	"minProperties": 1,
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 64},
		"age": {"type": "integer", "minimum": 0, "maximum": 40},
		"breed": {"type": "string", "maxLength": 64}
	}
}`

// CatNotFoundError is returned by the store for unknown ids
type CatNotFoundError struct {
	ID uuid.UUID
}

func (e *CatNotFoundError) Error() string {
	return fmt.Sprintf("cat %s not found", e.ID)
}
