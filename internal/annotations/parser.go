package annotations

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Parser parses controller annotation blocks such as
//
//	@Controller("/cats") @UseInterceptors(timing) {
//	    @Get("/:id") FindOne(@Param("id") id, @Query() q)
//	    @Post() Create(@Body(createCat) dto)
//	}
type Parser struct {
	parser  *participle.Parser[classNode]
	schemas map[string]AnnotationSchema
}

type classNode struct {
	Pos         lexer.Position
	Annotations []*annotationNode `parser:"@@*"`
	Members     []*memberNode     `parser:"'{' @@* '}'"`
}

type memberNode struct {
	Pos         lexer.Position
	Annotations []*annotationNode `parser:"@@*"`
	Name        string            `parser:"@Ident"`
	Params      []*paramNode      `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

type paramNode struct {
	Pos        lexer.Position
	Annotation *annotationNode `parser:"@@"`
	Name       string          `parser:"@Ident?"`
}

type annotationNode struct {
	Pos  lexer.Position
	Name string     `parser:"'@' @Ident"`
	Args []*argNode `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
}

type argNode struct {
	Pos    lexer.Position
	String *string `parser:"  @String"`
	Int    *int    `parser:"| @Int"`
	Ident  *string `parser:"| @Ident"`
}

var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.]*`},
	{Name: "Punct", Pattern: `[@(){},]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// NewParser creates a parser that validates against the built-in schemas
func NewParser() *Parser {
	return &Parser{
		parser: participle.MustBuild[classNode](
			participle.Lexer(annotationLexer),
			participle.Elide("Whitespace", "Comment"),
			participle.Unquote("String"),
			participle.UseLookahead(2),
		),
		schemas: Schemas(),
	}
}

// Parse parses and validates a controller annotation block.
// file is only used to label error locations.
func (p *Parser) Parse(source, file string) (*ParsedClass, error) {
	node, err := p.parser.ParseString(file, source)
	if err != nil {
		return nil, syntaxError(file, err)
	}

	var errs ErrorList
	class := &ParsedClass{}

	for _, a := range node.Annotations {
		parsed, err := p.annotation(a, OnClass)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		class.Annotations = append(class.Annotations, parsed)
	}
	errs = append(errs, singleOf(class.Annotations, ControllerAnnotation, "a class may declare only one @Controller")...)

	seen := make(map[string]bool)
	for _, m := range node.Members {
		member, memberErrs := p.member(m)
		errs = append(errs, memberErrs...)
		if member == nil {
			continue
		}
		if seen[member.Name] {
			errs = append(errs, &SchemaError{
				Annotation: routeName(member),
				Msg:        fmt.Sprintf("handler %s is declared more than once", member.Name),
				Loc:        member.Location,
				Hint:       "Give each handler method a distinct name",
			})
			continue
		}
		seen[member.Name] = true
		class.Members = append(class.Members, member)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return class, nil
}

func (p *Parser) member(m *memberNode) (*ParsedMember, ErrorList) {
	var errs ErrorList
	member := &ParsedMember{Name: m.Name, Location: location(m.Pos)}

	for _, a := range m.Annotations {
		parsed, err := p.annotation(a, OnMember)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		member.Annotations = append(member.Annotations, parsed)
	}

	if member.Route() == nil && len(errs) == 0 {
		errs = append(errs, &SchemaError{
			Annotation: "Get",
			Msg:        fmt.Sprintf("handler %s has no route annotation", m.Name),
			Loc:        member.Location,
			Hint:       `Add a route annotation such as @Get("/") before the method name`,
		})
	}
	errs = append(errs, singleOf(member.Annotations, RouteAnnotation, "a handler may declare only one route")...)

	for i, param := range m.Params {
		parsed, err := p.annotation(param.Annotation, OnParameter)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		member.Parameters = append(member.Parameters, &ParsedParameter{
			Annotation: parsed,
			Name:       param.Name,
			Index:      i,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return member, nil
}

func (p *Parser) annotation(a *annotationNode, placement Placement) (*ParsedAnnotation, AnnotationError) {
	loc := location(a.Pos)
	schema, ok := p.schemas[a.Name]
	if !ok {
		return nil, &SchemaError{
			Annotation: a.Name,
			Msg:        "unknown annotation",
			Loc:        loc,
			Hint:       suggest(a.Name, p.schemas),
		}
	}
	if !schema.Allows(placement) {
		return nil, &SchemaError{
			Annotation: a.Name,
			Msg:        fmt.Sprintf("not allowed on a %s", placement),
			Loc:        loc,
			Hint:       fmt.Sprintf("Use it on: %s", placements(schema.Placements)),
		}
	}

	parsed := &ParsedAnnotation{Name: a.Name, Type: schema.Type, Location: loc}
	for _, arg := range a.Args {
		parsed.Args = append(parsed.Args, convertArg(arg))
	}

	if err := checkArgs(schema, parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func checkArgs(schema AnnotationSchema, parsed *ParsedAnnotation) AnnotationError {
	n := len(parsed.Args)
	if n < schema.MinArgs || (schema.MaxArgs >= 0 && n > schema.MaxArgs) {
		return &SchemaError{
			Annotation: schema.Name,
			Msg:        fmt.Sprintf("expected %s, got %d", arity(schema), n),
			Loc:        parsed.Location,
			Hint:       examples(schema),
		}
	}
	if schema.Validate != nil {
		if msg := schema.Validate(parsed); msg != "" {
			return &SchemaError{Annotation: schema.Name, Msg: msg, Loc: parsed.Location, Hint: examples(schema)}
		}
		return nil
	}
	for i, arg := range parsed.Args {
		if want := schema.argKindsAt(i); arg.Kind != want {
			return &SchemaError{
				Annotation: schema.Name,
				Msg:        fmt.Sprintf("argument %d must be a %s, got %s", i+1, want, arg.Kind),
				Loc:        arg.Loc,
				Hint:       examples(schema),
			}
		}
	}
	return nil
}

func convertArg(a *argNode) Arg {
	loc := location(a.Pos)
	switch {
	case a.String != nil:
		return Arg{Kind: StringArg, Str: *a.String, Loc: loc}
	case a.Int != nil:
		return Arg{Kind: IntArg, Int: *a.Int, Loc: loc}
	default:
		return Arg{Kind: IdentArg, Str: *a.Ident, Loc: loc}
	}
}

func singleOf(list []*ParsedAnnotation, t AnnotationType, msg string) ErrorList {
	var errs ErrorList
	count := 0
	for _, a := range list {
		if a.Type != t {
			continue
		}
		count++
		if count > 1 {
			errs = append(errs, &SchemaError{Annotation: a.Name, Msg: msg, Loc: a.Location})
		}
	}
	return errs
}

func syntaxError(file string, err error) AnnotationError {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		if pos.Filename == "" {
			pos.Filename = file
		}
		return &SyntaxError{
			Msg:  perr.Message(),
			Loc:  location(pos),
			Hint: "Expected form: @Controller(\"/path\") { @Get(\"/\") Handler(@Param(\"id\") id) }",
		}
	}
	return &SyntaxError{Msg: err.Error(), Loc: SourceLocation{File: file}}
}

func location(pos lexer.Position) SourceLocation {
	return SourceLocation{File: pos.Filename, Line: pos.Line, Column: pos.Column}
}

func routeName(m *ParsedMember) string {
	if r := m.Route(); r != nil {
		return r.Name
	}
	return m.Name
}

func arity(s AnnotationSchema) string {
	switch {
	case s.MaxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", s.MinArgs)
	case s.MinArgs == s.MaxArgs:
		return fmt.Sprintf("exactly %d argument(s)", s.MinArgs)
	default:
		return fmt.Sprintf("%d to %d argument(s)", s.MinArgs, s.MaxArgs)
	}
}

func examples(s AnnotationSchema) string {
	if len(s.Examples) == 0 {
		return ""
	}
	return "Example: " + strings.Join(s.Examples, ", ")
}

func placements(p Placement) string {
	var out []string
	for _, candidate := range []Placement{OnClass, OnMember, OnParameter} {
		if p&candidate != 0 {
			out = append(out, candidate.String())
		}
	}
	return strings.Join(out, ", ")
}

// suggest returns a hint naming known annotations that differ from name only by case
// or share its prefix.
func suggest(name string, schemas map[string]AnnotationSchema) string {
	var matches []string
	lower := strings.ToLower(name)
	for known := range schemas {
		k := strings.ToLower(known)
		if k == lower || (len(lower) >= 3 && strings.HasPrefix(k, lower[:3])) {
			matches = append(matches, "@"+known)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return "Did you mean " + strings.Join(matches, " or ") + "?"
}
