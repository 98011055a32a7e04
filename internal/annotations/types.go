package annotations

import "fmt"

// AnnotationType represents the type of annotation
type AnnotationType int

const (
	ControllerAnnotation AnnotationType = iota
	RouteAnnotation
	ParameterAnnotation
	InterceptorAnnotation
	PipeAnnotation
	FilterAnnotation
)

// String returns the string representation of the annotation type
func (a AnnotationType) String() string {
	switch a {
	case ControllerAnnotation:
		return "controller"
	case RouteAnnotation:
		return "route"
	case ParameterAnnotation:
		return "parameter"
	case InterceptorAnnotation:
		return "interceptor"
	case PipeAnnotation:
		return "pipe"
	case FilterAnnotation:
		return "filter"
	default:
		return "unknown"
	}
}

// Placement describes where an annotation may be attached
type Placement int

const (
	OnClass Placement = 1 << iota
	OnMember
	OnParameter
)

// String returns the string representation of the placement
func (p Placement) String() string {
	switch p {
	case OnClass:
		return "class"
	case OnMember:
		return "member"
	case OnParameter:
		return "parameter"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// SourceLocation represents the location of an annotation in source text
type SourceLocation struct {
	File   string // Source name, may be empty
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns a formatted representation of the location
func (s SourceLocation) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// ArgKind identifies the lexical kind of an annotation argument
type ArgKind int

const (
	StringArg ArgKind = iota
	IdentArg
	IntArg
)

// String returns the string representation of the argument kind
func (k ArgKind) String() string {
	switch k {
	case StringArg:
		return "string"
	case IdentArg:
		return "identifier"
	case IntArg:
		return "int"
	default:
		return "unknown"
	}
}

// Arg is a single resolved annotation argument
type Arg struct {
	Kind ArgKind
	Str  string // set for StringArg and IdentArg
	Int  int    // set for IntArg
	Loc  SourceLocation
}

// ParsedAnnotation is a validated annotation with its schema attached
type ParsedAnnotation struct {
	Name     string
	Type     AnnotationType
	Args     []Arg
	Location SourceLocation
}

// StringArg returns the i-th argument as a string when it is a string literal
func (p *ParsedAnnotation) StringArg(i int) (string, bool) {
	if i >= len(p.Args) || p.Args[i].Kind != StringArg {
		return "", false
	}
	return p.Args[i].Str, true
}

// Idents returns every identifier argument in order
func (p *ParsedAnnotation) Idents() []string {
	var out []string
	for _, a := range p.Args {
		if a.Kind == IdentArg {
			out = append(out, a.Str)
		}
	}
	return out
}

// ParsedParameter is an annotated handler parameter
type ParsedParameter struct {
	Annotation *ParsedAnnotation
	Name       string // optional documentation name
	Index      int
}

// ParsedMember is an annotated handler method
type ParsedMember struct {
	Name        string
	Annotations []*ParsedAnnotation
	Parameters  []*ParsedParameter
	Location    SourceLocation
}

// Route returns the route annotation of the member, if any
func (m *ParsedMember) Route() *ParsedAnnotation {
	for _, a := range m.Annotations {
		if a.Type == RouteAnnotation {
			return a
		}
	}
	return nil
}

// ParsedClass is the validated result of parsing a controller declaration
type ParsedClass struct {
	Annotations []*ParsedAnnotation
	Members     []*ParsedMember
}

// Controller returns the class-level controller annotation, if any
func (c *ParsedClass) Controller() *ParsedAnnotation {
	for _, a := range c.Annotations {
		if a.Type == ControllerAnnotation {
			return a
		}
	}
	return nil
}
