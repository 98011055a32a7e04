package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func tagValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use json tags as field names for better error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "-" {
				return ""
			}
			if idx := strings.Index(name, ","); idx != -1 {
				name = name[:idx]
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

type structSchema struct {
	target reflect.Type
}

// Struct validates values of type T with go-playground/validator `validate` tags.
// Bodies checked by it are decoded straight into T.
func Struct[T any]() Schema {
	return &structSchema{target: reflect.TypeOf((*T)(nil)).Elem()}
}

func (s *structSchema) Target() reflect.Type { return s.target }

func (s *structSchema) Validate(value any) (any, error) {
	if err := ValidateStruct(value); err != nil {
		return nil, err
	}
	return value, nil
}

// ValidateStruct runs tag validation on a struct or struct pointer
func ValidateStruct(value any) error {
	err := tagValidator().Struct(value)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Fields: []FieldError{{Rule: "invalid", Message: err.Error()}}}
	}

	var out Error
	for _, fe := range verrs {
		field := fe.Namespace()
		// Strip top struct name
		if idx := strings.Index(field, "."); idx != -1 {
			field = field[idx+1:]
		}
		out.Add(field, fe.Tag(), tagMessage(field, fe))
	}
	out.Sort()
	return &out
}

func tagMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return field + " is required"
	case "min":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
	}
}

func isLengthKind(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map || k == reflect.Array
}
