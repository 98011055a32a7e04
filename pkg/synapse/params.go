package synapse

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/toyz/synapse/pkg/synapse/schema"
)

// Schema validates body and query values; see package schema
type Schema = schema.Schema

// Contribution is one resolved handler argument
type Contribution struct {
	Parameter      any
	ParameterIndex int
	Meta           ArgumentMetadata
}

// paramResolver returns nil when the handler has no metadata for its source
type paramResolver func(ctx context.Context, ec *ExecutionContext, rb *routeBinding) ([]Contribution, error)

// Resolvers run in this order
var paramResolvers = []paramResolver{
	resolveRequestParams,
	resolveQueryParams,
	resolvePathParams,
	resolveBodyParams,
}

func resolveRequestParams(_ context.Context, ec *ExecutionContext, rb *routeBinding) ([]Contribution, error) {
	metas := rb.handler.RequestMeta()
	if len(metas) == 0 {
		return nil, nil
	}
	out := make([]Contribution, 0, len(metas))
	for _, m := range metas {
		out = append(out, Contribution{Parameter: ec.Request(), ParameterIndex: m.Index, Meta: rb.argMeta(m)})
	}
	return out, nil
}

func resolveQueryParams(_ context.Context, ec *ExecutionContext, rb *routeBinding) ([]Contribution, error) {
	metas := rb.handler.QueryMeta()
	if len(metas) == 0 {
		return nil, nil
	}

	query := ec.Request().Query()
	out := make([]Contribution, 0, len(metas))
	for _, m := range metas {
		var value any = query
		switch {
		case m.Schema != nil:
			validated, err := m.Schema.Validate(query.ToMap())
			if err != nil {
				return nil, validationError(QueryParam, err)
			}
			value = validated
		case m.Data != "":
			if v, ok := query[m.Data]; ok {
				value = v
			} else {
				value = nil
			}
		}
		out = append(out, Contribution{Parameter: value, ParameterIndex: m.Index, Meta: rb.argMeta(m)})
	}
	return out, nil
}

// Path params are checked in declaration order, so the first missing one decides the error.
// Falsy-looking values such as "0" are present; only the empty string is missing.
func resolvePathParams(_ context.Context, ec *ExecutionContext, rb *routeBinding) ([]Contribution, error) {
	metas := rb.handler.ParamMeta()
	if len(metas) == 0 {
		return nil, nil
	}

	params := ec.Params()
	out := make([]Contribution, 0, len(metas))
	for _, m := range metas {
		value, ok := params[m.Data]
		if params == nil || !ok || value == "" {
			return nil, NewValidationError(fmt.Sprintf("Invalid param: %s is required", m.Data))
		}
		out = append(out, Contribution{Parameter: value, ParameterIndex: m.Index, Meta: rb.argMeta(m)})
	}
	return out, nil
}

func resolveBodyParams(_ context.Context, ec *ExecutionContext, rb *routeBinding) ([]Contribution, error) {
	metas := rb.handler.BodyMeta()
	if len(metas) == 0 {
		return nil, nil
	}

	out := make([]Contribution, 0, len(metas))
	for _, m := range metas {
		meta := rb.argMeta(m)
		target := bodyTarget(m.Schema, meta.Metatype)

		ptr := reflect.New(target)
		if err := ec.Request().JSON(ptr.Interface()); err != nil {
			return nil, NewValidationError("Missing or invalid request body")
		}
		value := ptr.Elem().Interface()

		if m.Schema != nil {
			validated, err := m.Schema.Validate(value)
			if err != nil {
				return nil, validationError(BodyParam, err)
			}
			value = validated
		}
		out = append(out, Contribution{Parameter: value, ParameterIndex: m.Index, Meta: meta})
	}
	return out, nil
}

var (
	genericMapType = reflect.TypeOf(map[string]any{})
	anyType        = reflect.TypeOf((*any)(nil)).Elem()
)

// bodyTarget picks the decode target: the schema's type, then the handler's
// declared parameter type, then a generic map
func bodyTarget(s Schema, metatype reflect.Type) reflect.Type {
	if s != nil {
		if t, ok := s.(schema.Targeted); ok && t.Target() != nil {
			return t.Target()
		}
		return anyType
	}
	if metatype != nil && metatype.Kind() != reflect.Interface {
		return metatype
	}
	return genericMapType
}

// resolveArguments collects every contribution, orders them by index and runs pipes.
// The returned slice is indexed by argument position.
func (s *Server) resolveArguments(ctx context.Context, ec *ExecutionContext, rb *routeBinding) ([]any, error) {
	var contributions []Contribution
	for _, resolve := range paramResolvers {
		c, err := resolve(ctx, ec, rb)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, c...)
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].ParameterIndex < contributions[j].ParameterIndex
	})

	size := rb.numIn
	for _, c := range contributions {
		if c.ParameterIndex >= size {
			size = c.ParameterIndex + 1
		}
	}
	args := make([]any, size)

	for _, c := range contributions {
		pipes := append(append([]Pipe(nil), rb.pipes...), rb.paramPipes[c.ParameterIndex]...)
		value, err := applyPipes(c.Parameter, c.Meta, pipes)
		if err != nil {
			return nil, validationError(c.Meta.Type, err)
		}
		args[c.ParameterIndex] = value
	}
	return args, nil
}

// validationError keeps typed HTTP errors and prefixes anything else with the argument kind
func validationError(kind ParamType, err error) error {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return err
	}
	e := NewValidationError(fmt.Sprintf("Invalid %s: %s", kind, err.Error()))
	e.Cause = err
	var serr *schema.Error
	if errors.As(err, &serr) {
		e.Details = serr.Fields
	}
	return e
}

// adaptArgs converts resolved values to the method's parameter types. Missing
// arguments become zero values; values the method cannot take are errors.
func adaptArgs(args []any, fnType reflect.Type, name string) ([]reflect.Value, error) {
	n := fnType.NumIn()
	if len(args) > n {
		return nil, NewResolutionError(
			fmt.Sprintf("Handler %s takes %d arguments but %d were declared", name, n, len(args)), nil)
	}

	out := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		want := fnType.In(i)
		var value any
		if i < len(args) {
			value = args[i]
		}
		v, err := adaptValue(value, want)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("Invalid argument %d of %s: %s", i, name, err))
		}
		out[i] = v
	}
	return out, nil
}

func adaptValue(value any, want reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type().AssignableTo(want) {
		return v.Elem(), nil
	}
	if want.Kind() == reflect.Ptr && v.Type().AssignableTo(want.Elem()) {
		ptr := reflect.New(want.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	}
	if convertible(v.Type(), want) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), want)
}

// convertible excludes numeric to string conversion, which Go defines as a rune conversion
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String {
		return from.Kind() == reflect.String || from.Kind() == reflect.Slice
	}
	return true
}
