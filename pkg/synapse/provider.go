package synapse

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/toyz/synapse/internal/container"
)

// ProviderKind discriminates the Provider variants
type ProviderKind int

const (
	// ProviderClass binds a struct type to itself
	ProviderClass ProviderKind = iota
	// ProviderUseClass binds a token to a struct type
	ProviderUseClass
	// ProviderUseValue binds a token to a constant
	ProviderUseValue
	// ProviderUseFactory binds a token to a factory function
	ProviderUseFactory
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderClass:
		return "class"
	case ProviderUseClass:
		return "useClass"
	case ProviderUseValue:
		return "useValue"
	case ProviderUseFactory:
		return "useFactory"
	default:
		return "unknown"
	}
}

// Scope controls how often a provider is built
type Scope = container.Scope

const (
	Singleton = container.Singleton
	Transient = container.Transient
	// RequestScoped providers are built once per dispatched request
	RequestScoped = container.Request
)

// Resolver is handed to factories so they can resolve their own dependencies
type Resolver interface {
	GetAsync(ctx context.Context, token Token) (any, error)
	IsBound(token Token) bool
}

// FactoryFunc builds a provider value. It may block; ctx carries the request scope, if any.
type FactoryFunc func(ctx context.Context, r Resolver) (any, error)

// Provider is a DI-registrable unit
type Provider struct {
	Kind    ProviderKind
	Token   Token
	Type    reflect.Type // struct pointer type for ProviderClass and ProviderUseClass
	Value   any
	Factory FactoryFunc
	Scope   Scope
}

// ProviderOption configures a Provider
type ProviderOption func(*Provider)

// InScope sets the provider scope
func InScope(s Scope) ProviderOption {
	return func(p *Provider) {
		p.Scope = s
	}
}

// Class self-binds T, which must be a pointer to a struct. Exported fields tagged
// `inject:"token"` are resolved by string token; an empty tag resolves by field type.
// Add ",optional" to leave a field zero when its token is unbound.
// If *T has an Init(context.Context) error method, it runs after injection.
func Class[T any](opts ...ProviderOption) Provider {
	t := TypeToken[T]()
	p := Provider{Kind: ProviderClass, Token: t, Type: t}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// UseClass binds token to instances of T, which must be a pointer to a struct
func UseClass[T any](token Token, opts ...ProviderOption) Provider {
	p := Provider{Kind: ProviderUseClass, Token: token, Type: TypeToken[T]()}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// UseValue binds token to a constant
func UseValue(token Token, value any) Provider {
	return Provider{Kind: ProviderUseValue, Token: token, Value: value}
}

// UseFactory binds token to a factory
func UseFactory(token Token, fn FactoryFunc, opts ...ProviderOption) Provider {
	p := Provider{Kind: ProviderUseFactory, Token: token, Factory: fn}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p Provider) validate() error {
	if err := validToken(p.Token); err != nil {
		return fmt.Errorf("invalid %s provider: %w", p.Kind, err)
	}
	switch p.Kind {
	case ProviderClass, ProviderUseClass:
		if p.Type == nil || p.Type.Kind() != reflect.Ptr || p.Type.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%s provider for %s: type must be a pointer to a struct, got %v",
				p.Kind, container.KeyString(p.Token), p.Type)
		}
	case ProviderUseFactory:
		if p.Factory == nil {
			return fmt.Errorf("useFactory provider for %s: nil factory", container.KeyString(p.Token))
		}
	case ProviderUseValue:
	default:
		return fmt.Errorf("unknown provider kind %d", p.Kind)
	}
	return nil
}

func (p Provider) providerFunc(c *Container) container.ProviderFunc {
	switch p.Kind {
	case ProviderUseFactory:
		return func(ctx context.Context, _ container.Resolver) (any, error) {
			return p.Factory(ctx, c)
		}
	case ProviderUseValue:
		return func(context.Context, container.Resolver) (any, error) {
			return p.Value, nil
		}
	default:
		return func(ctx context.Context, r container.Resolver) (any, error) {
			return construct(ctx, r, p.Type)
		}
	}
}

// Initializer is implemented by classes that need setup after injection
type Initializer interface {
	Init(ctx context.Context) error
}

func construct(ctx context.Context, r container.Resolver, typ reflect.Type) (any, error) {
	ptr := reflect.New(typ.Elem())
	elem := ptr.Elem()

	for i := 0; i < elem.NumField(); i++ {
		field := typ.Elem().Field(i)
		tag, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("%s.%s: inject requires an exported field", typ.Elem().Name(), field.Name)
		}

		name, optional := parseInjectTag(tag)
		var token Token = field.Type
		if name != "" {
			token = name
		}

		dep, err := r.Resolve(ctx, token)
		if err != nil {
			if optional && errors.Is(err, container.ErrNotFound) && !r.Has(token) {
				continue
			}
			return nil, fmt.Errorf("%s.%s: %w", typ.Elem().Name(), field.Name, err)
		}
		if dep == nil {
			continue
		}

		v := reflect.ValueOf(dep)
		if !v.Type().AssignableTo(field.Type) {
			return nil, fmt.Errorf("%s.%s: cannot assign %s to %s",
				typ.Elem().Name(), field.Name, v.Type(), field.Type)
		}
		elem.Field(i).Set(v)
	}

	instance := ptr.Interface()
	if init, ok := instance.(Initializer); ok {
		if err := init.Init(ctx); err != nil {
			return nil, fmt.Errorf("%s.Init: %w", typ.Elem().Name(), err)
		}
	}
	return instance, nil
}

func parseInjectTag(tag string) (name string, optional bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "optional" {
			optional = true
		}
	}
	return name, optional
}
