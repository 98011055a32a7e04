package annotations

import (
	"fmt"
	"strings"
)

// AnnotationSchema defines where an annotation may appear and which arguments it takes
type AnnotationSchema struct {
	Name        string         // Annotation name without '@'
	Type        AnnotationType // Annotation type enum
	Placements  Placement      // Bit set of allowed placements
	MinArgs     int            // Minimum number of arguments
	MaxArgs     int            // Maximum number of arguments, -1 for unbounded
	ArgKinds    []ArgKind      // Allowed kinds per position; the last entry repeats
	Description string         // Human-readable description
	Examples    []string       // Usage examples

	// Validate replaces the per-position kind check when set; it returns a message on failure
	Validate func(a *ParsedAnnotation) string
}

// Allows reports whether the schema permits the given placement
func (s AnnotationSchema) Allows(p Placement) bool {
	return s.Placements&p != 0
}

func (s AnnotationSchema) argKindsAt(i int) ArgKind {
	if len(s.ArgKinds) == 0 {
		return IdentArg
	}
	if i < len(s.ArgKinds) {
		return s.ArgKinds[i]
	}
	return s.ArgKinds[len(s.ArgKinds)-1]
}

func routeSchema(name string) AnnotationSchema {
	return AnnotationSchema{
		Name:        name,
		Type:        RouteAnnotation,
		Placements:  OnMember,
		MinArgs:     0,
		MaxArgs:     1,
		ArgKinds:    []ArgKind{StringArg},
		Description: fmt.Sprintf("Maps the handler to HTTP %s requests", strings.ToUpper(name)),
		Examples:    []string{fmt.Sprintf(`@%s("/:id")`, name), fmt.Sprintf("@%s()", name)},
	}
}

// Built-in annotation schemas
var builtinSchemas = []AnnotationSchema{
	{
		Name:        "Controller",
		Type:        ControllerAnnotation,
		Placements:  OnClass,
		MinArgs:     0,
		MaxArgs:     1,
		ArgKinds:    []ArgKind{StringArg},
		Description: "Declares the class as a controller and sets its path prefix",
		Examples:    []string{`@Controller("/cats")`, "@Controller()"},
	},
	routeSchema("Get"),
	routeSchema("Post"),
	routeSchema("Put"),
	routeSchema("Patch"),
	routeSchema("Delete"),
	routeSchema("Options"),
	routeSchema("Head"),
	{
		Name:        "UseInterceptors",
		Type:        InterceptorAnnotation,
		Placements:  OnClass | OnMember,
		MinArgs:     1,
		MaxArgs:     -1,
		ArgKinds:    []ArgKind{IdentArg},
		Description: "Attaches interceptors, outermost first",
		Examples:    []string{"@UseInterceptors(logging, timing)"},
	},
	{
		Name:        "UsePipes",
		Type:        PipeAnnotation,
		Placements:  OnClass | OnMember,
		MinArgs:     1,
		MaxArgs:     -1,
		ArgKinds:    []ArgKind{IdentArg},
		Description: "Attaches pipes applied to every argument",
		Examples:    []string{"@UsePipes(trim)"},
	},
	{
		Name:        "UseFilters",
		Type:        FilterAnnotation,
		Placements:  OnClass | OnMember,
		MinArgs:     1,
		MaxArgs:     -1,
		ArgKinds:    []ArgKind{IdentArg},
		Description: "Attaches exception filters",
		Examples:    []string{"@UseFilters(notFound)"},
	},
	{
		Name:        "Req",
		Type:        ParameterAnnotation,
		Placements:  OnParameter,
		MinArgs:     0,
		MaxArgs:     0,
		Description: "Injects the raw request",
		Examples:    []string{"@Req() req"},
	},
	{
		Name:        "Query",
		Type:        ParameterAnnotation,
		Placements:  OnParameter,
		MinArgs:     0,
		MaxArgs:     -1,
		Validate:    validateQueryArgs,
		Description: "Injects the query map, a single key, or a validated query map",
		Examples:    []string{"@Query() q", `@Query("page", parseInt) page`, "@Query(listSchema) q"},
	},
	{
		Name:        "Param",
		Type:        ParameterAnnotation,
		Placements:  OnParameter,
		MinArgs:     1,
		MaxArgs:     -1,
		ArgKinds:    []ArgKind{StringArg, IdentArg},
		Description: "Injects a named path parameter, optionally through pipes",
		Examples:    []string{`@Param("id") id`, `@Param("id", parseInt) id`},
	},
	{
		Name:        "Body",
		Type:        ParameterAnnotation,
		Placements:  OnParameter,
		MinArgs:     0,
		MaxArgs:     -1,
		ArgKinds:    []ArgKind{IdentArg},
		Description: "Injects the decoded JSON body, validated by an optional schema",
		Examples:    []string{"@Body() dto", "@Body(createCat) dto"},
	},
}

// @Query takes either an optional key followed by pipes, or only a schema identifier
func validateQueryArgs(a *ParsedAnnotation) string {
	for i, arg := range a.Args {
		if i == 0 && arg.Kind == StringArg {
			continue
		}
		if arg.Kind != IdentArg {
			return fmt.Sprintf("argument %d must be a %s, got %s", i+1, IdentArg, arg.Kind)
		}
	}
	return ""
}

// Schemas returns the built-in annotation schemas keyed by name
func Schemas() map[string]AnnotationSchema {
	out := make(map[string]AnnotationSchema, len(builtinSchemas))
	for _, s := range builtinSchemas {
		out[s.Name] = s
	}
	return out
}
