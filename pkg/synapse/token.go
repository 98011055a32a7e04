package synapse

import (
	"fmt"
	"reflect"
)

// Token identifies a provider in the container: a string, a *Symbol or a reflect.Type
type Token = any

// Symbol is an opaque token. Two symbols are never equal, even with the same description.
type Symbol struct {
	desc string
}

// NewSymbol creates a new unique token
func NewSymbol(desc string) *Symbol {
	return &Symbol{desc: desc}
}

func (s *Symbol) String() string {
	return "Symbol(" + s.desc + ")"
}

// TypeToken returns the token that identifies T by type
func TypeToken[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func validToken(t Token) error {
	switch v := t.(type) {
	case string:
		if v == "" {
			return fmt.Errorf("empty string token")
		}
		return nil
	case *Symbol:
		if v == nil {
			return fmt.Errorf("nil symbol token")
		}
		return nil
	case reflect.Type:
		if v == nil {
			return fmt.Errorf("nil type token")
		}
		return nil
	case nil:
		return fmt.Errorf("nil token")
	default:
		return fmt.Errorf("unsupported token type %T", t)
	}
}
