package synapse

import (
	"fmt"
	"strings"

	"github.com/toyz/synapse/internal/annotations"
)

// Symbols maps identifiers used in annotation source to pipes, schemas,
// interceptors and filters. Identifiers missing from the map become
// string container tokens resolved at Init.
type Symbols map[string]any

func (s Symbols) lookup(name string) any {
	if v, ok := s[name]; ok {
		return v
	}
	return name
}

func (s Symbols) lookupAll(names []string) []any {
	out := make([]any, 0, len(names))
	for _, n := range names {
		out = append(out, s.lookup(n))
	}
	return out
}

// Annotate builds controller metadata for T from annotation source:
//
//	@Controller("/cats") @UseInterceptors(logging) {
//		@Get("/:id") FindOne(@Param("id", parseInt) id)
//		@Post() Create(@Body(createCat) dto)
//	}
func Annotate[T any](source string, symbols Symbols) (*ControllerDef, error) {
	class, err := annotations.NewParser().Parse(source, TypeToken[T]().String())
	if err != nil {
		return nil, err
	}

	var def *ControllerDef
	if ctrl := class.Controller(); ctrl != nil {
		path, _ := ctrl.StringArg(0)
		def = Controller[T](path)
	} else {
		def = NewController[T]()
	}

	for _, a := range class.Annotations {
		switch a.Type {
		case annotations.InterceptorAnnotation:
			def.UseInterceptors(symbols.lookupAll(a.Idents())...)
		case annotations.PipeAnnotation:
			def.UsePipes(symbols.lookupAll(a.Idents())...)
		case annotations.FilterAnnotation:
			def.UseFilters(symbols.lookupAll(a.Idents())...)
		}
	}

	for _, m := range class.Members {
		route := m.Route()
		path, _ := route.StringArg(0)

		params := make([]ParamDecl, 0, len(m.Parameters))
		for _, p := range m.Parameters {
			decl, err := paramDecl(p.Annotation, symbols)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Annotation.Location, err)
			}
			params = append(params, decl.At(p.Index))
		}

		h := def.Route(strings.ToUpper(route.Name), path, m.Name, params...)
		for _, a := range m.Annotations {
			switch a.Type {
			case annotations.InterceptorAnnotation:
				h.UseInterceptors(symbols.lookupAll(a.Idents())...)
			case annotations.PipeAnnotation:
				h.UsePipes(symbols.lookupAll(a.Idents())...)
			case annotations.FilterAnnotation:
				h.UseFilters(symbols.lookupAll(a.Idents())...)
			}
		}
	}

	return def, nil
}

// MustAnnotate is Annotate that panics on error, for package-level declarations
func MustAnnotate[T any](source string, symbols Symbols) *ControllerDef {
	def, err := Annotate[T](source, symbols)
	if err != nil {
		panic(err)
	}
	return def
}

func paramDecl(a *annotations.ParsedAnnotation, symbols Symbols) (ParamDecl, error) {
	switch a.Name {
	case "Req":
		return Req(), nil
	case "Param":
		name, _ := a.StringArg(0)
		return Param(name, symbols.lookupAll(a.Idents())...), nil
	case "Query":
		if key, ok := a.StringArg(0); ok {
			return Query(key, symbols.lookupAll(a.Idents())...), nil
		}
		s, pipes := splitSchema(a.Idents(), symbols)
		if s != nil {
			return QueryWith(s, pipes...), nil
		}
		return Query("", pipes...), nil
	case "Body":
		s, pipes := splitSchema(a.Idents(), symbols)
		if s != nil {
			return BodyWith(s, pipes...), nil
		}
		return Body(pipes...), nil
	default:
		return ParamDecl{}, fmt.Errorf("@%s is not a parameter annotation", a.Name)
	}
}

// splitSchema takes the first identifier bound to a Schema as the schema; the rest are pipes
func splitSchema(names []string, symbols Symbols) (Schema, []any) {
	var s Schema
	var pipes []any
	for _, n := range names {
		v := symbols.lookup(n)
		if candidate, ok := v.(Schema); ok && s == nil {
			if _, isPipe := v.(Pipe); !isPipe {
				s = candidate
				continue
			}
		}
		pipes = append(pipes, v)
	}
	return s, pipes
}
