package synapse

import (
	"net/http"
	"reflect"
	"strings"
)

// ParamType names the source of a handler argument
type ParamType string

const (
	RequestParam ParamType = "request"
	QueryParam   ParamType = "query"
	PathParam    ParamType = "param"
	BodyParam    ParamType = "body"
)

// ArgumentMetadata describes the argument a pipe is transforming
type ArgumentMetadata struct {
	Type     ParamType
	Metatype reflect.Type // the handler's declared parameter type, nil when unknown
	Data     string       // param name or query key, empty otherwise
}

// ParamMetadata is one parameter-source declaration on a handler
type ParamMetadata struct {
	Type   ParamType
	Index  int
	Data   string
	Schema Schema
	Pipes  []any
}

// ParamDecl declares where a handler argument comes from
type ParamDecl struct {
	meta     ParamMetadata
	explicit bool
}

// At pins the declaration to argument position i instead of its position in the list
func (d ParamDecl) At(i int) ParamDecl {
	d.meta.Index = i
	d.explicit = true
	return d
}

// Req injects the raw *Request
func Req() ParamDecl {
	return ParamDecl{meta: ParamMetadata{Type: RequestParam}}
}

// Query injects the whole QueryMap when key is empty, otherwise the value of key
func Query(key string, pipes ...any) ParamDecl {
	return ParamDecl{meta: ParamMetadata{Type: QueryParam, Data: key, Pipes: pipes}}
}

// QueryWith injects the query map after validating it with schema
func QueryWith(schema Schema, pipes ...any) ParamDecl {
	return ParamDecl{meta: ParamMetadata{Type: QueryParam, Schema: schema, Pipes: pipes}}
}

// Param injects the named path parameter
func Param(name string, pipes ...any) ParamDecl {
	return ParamDecl{meta: ParamMetadata{Type: PathParam, Data: name, Pipes: pipes}}
}

// Body injects the decoded JSON body
func Body(pipes ...any) ParamDecl {
	return ParamDecl{meta: ParamMetadata{Type: BodyParam, Pipes: pipes}}
}

// BodyWith injects the JSON body after validating it with schema
func BodyWith(schema Schema, pipes ...any) ParamDecl {
	return ParamDecl{meta: ParamMetadata{Type: BodyParam, Schema: schema, Pipes: pipes}}
}

// ControllerDef is the metadata registry for one controller type
type ControllerDef struct {
	typ      reflect.Type
	path     string
	declared bool
	handlers []*HandlerDef

	interceptors []any
	pipes        []any
	filters      []any
}

// Controller declares T, a pointer to a struct, as a controller mounted at path
func Controller[T any](path string) *ControllerDef {
	return &ControllerDef{typ: TypeToken[T](), path: path, declared: true}
}

// NewController creates metadata for T without the controller declaration.
// Such a controller contributes no routes.
func NewController[T any]() *ControllerDef {
	return &ControllerDef{typ: TypeToken[T]()}
}

// Type returns the controller type, which is also its container token
func (c *ControllerDef) Type() reflect.Type { return c.typ }

// Path returns the controller path prefix
func (c *ControllerDef) Path() string { return c.path }

// Declared reports whether the controller carries a controller declaration
func (c *ControllerDef) Declared() bool { return c.declared }

// Name returns the controller's type name
func (c *ControllerDef) Name() string {
	t := c.typ
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

func (c *ControllerDef) String() string { return c.Name() }

// Handlers returns the handlers in declaration order
func (c *ControllerDef) Handlers() []*HandlerDef {
	return append([]*HandlerDef(nil), c.handlers...)
}

// Handler returns the first handler bound to methodName
func (c *ControllerDef) Handler(methodName string) *HandlerDef {
	for _, h := range c.handlers {
		if h.methodName == methodName {
			return h
		}
	}
	return nil
}

// Interceptors returns controller-level interceptors
func (c *ControllerDef) Interceptors() []any { return append([]any(nil), c.interceptors...) }

// Pipes returns controller-level pipes
func (c *ControllerDef) Pipes() []any { return append([]any(nil), c.pipes...) }

// Filters returns controller-level exception filters
func (c *ControllerDef) Filters() []any { return append([]any(nil), c.filters...) }

// UseInterceptors attaches interceptor instances or tokens to every handler
func (c *ControllerDef) UseInterceptors(items ...any) *ControllerDef {
	c.interceptors = append(c.interceptors, items...)
	return c
}

// UsePipes attaches pipe instances or tokens to every handler argument
func (c *ControllerDef) UsePipes(items ...any) *ControllerDef {
	c.pipes = append(c.pipes, items...)
	return c
}

// UseFilters attaches exception filter instances or tokens
func (c *ControllerDef) UseFilters(items ...any) *ControllerDef {
	c.filters = append(c.filters, items...)
	return c
}

// Route maps an HTTP method and path to methodName
func (c *ControllerDef) Route(method, path, methodName string, params ...ParamDecl) *HandlerDef {
	h := &HandlerDef{
		controller: c,
		httpMethod: strings.ToUpper(method),
		path:       path,
		methodName: methodName,
	}
	for i, p := range params {
		if !p.explicit {
			p.meta.Index = i
		}
		h.setParam(p.meta)
	}
	c.handlers = append(c.handlers, h)
	return h
}

// Get declares a GET route on path served by methodName
func (c *ControllerDef) Get(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodGet, path, methodName, params...)
}

// Post declares a POST route on path served by methodName
func (c *ControllerDef) Post(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodPost, path, methodName, params...)
}

// Put declares a PUT route on path served by methodName
func (c *ControllerDef) Put(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodPut, path, methodName, params...)
}

// Patch declares a PATCH route on path served by methodName
func (c *ControllerDef) Patch(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodPatch, path, methodName, params...)
}

// Delete declares a DELETE route on path served by methodName
func (c *ControllerDef) Delete(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodDelete, path, methodName, params...)
}

// Options declares a OPTIONS route on path served by methodName
func (c *ControllerDef) Options(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodOptions, path, methodName, params...)
}

// Head declares a HEAD route on path served by methodName
func (c *ControllerDef) Head(path, methodName string, params ...ParamDecl) *HandlerDef {
	return c.Route(http.MethodHead, path, methodName, params...)
}

// Routes extracts the controller's route descriptors. An undeclared controller has none.
func (c *ControllerDef) Routes() []RouteDescriptor {
	if !c.declared {
		return nil
	}
	routes := make([]RouteDescriptor, 0, len(c.handlers))
	for _, h := range c.handlers {
		routes = append(routes, RouteDescriptor{
			Method:     h.httpMethod,
			Path:       JoinPaths(c.path, h.path),
			MethodName: h.methodName,
			Controller: c,
			Handler:    h,
		})
	}
	return routes
}

// HandlerDef is the metadata for one handler method
type HandlerDef struct {
	controller *ControllerDef
	httpMethod string
	path       string
	methodName string
	params     []ParamMetadata

	interceptors []any
	pipes        []any
	filters      []any
}

// Controller returns the controller that declared the handler
func (h *HandlerDef) Controller() *ControllerDef { return h.controller }

// HTTPMethod returns the upper-case HTTP verb
func (h *HandlerDef) HTTPMethod() string { return h.httpMethod }

// Path returns the handler path relative to its controller
func (h *HandlerDef) Path() string { return h.path }

// MethodName returns the name of the controller method that serves the route
func (h *HandlerDef) MethodName() string { return h.methodName }

// Params returns every parameter declaration in declaration order
func (h *HandlerDef) Params() []ParamMetadata {
	return append([]ParamMetadata(nil), h.params...)
}

// AddParam declares one more argument. Without At it takes the next position.
func (h *HandlerDef) AddParam(d ParamDecl) *HandlerDef {
	if !d.explicit {
		d.meta.Index = h.nextIndex()
	}
	h.setParam(d.meta)
	return h
}

// setParam records meta; an earlier declaration for the same index is replaced
func (h *HandlerDef) setParam(meta ParamMetadata) {
	for i, existing := range h.params {
		if existing.Index == meta.Index {
			h.params = append(h.params[:i], h.params[i+1:]...)
			break
		}
	}
	h.params = append(h.params, meta)
}

func (h *HandlerDef) nextIndex() int {
	next := 0
	for _, p := range h.params {
		if p.Index >= next {
			next = p.Index + 1
		}
	}
	return next
}

func (h *HandlerDef) metaOf(t ParamType) []ParamMetadata {
	var out []ParamMetadata
	for _, p := range h.params {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// RequestMeta returns the raw-request declarations, nil when the handler takes none
func (h *HandlerDef) RequestMeta() []ParamMetadata { return h.metaOf(RequestParam) }

// QueryMeta returns the query declarations
func (h *HandlerDef) QueryMeta() []ParamMetadata { return h.metaOf(QueryParam) }

// ParamMeta returns the path parameter declarations in declaration order
func (h *HandlerDef) ParamMeta() []ParamMetadata { return h.metaOf(PathParam) }

// BodyMeta returns the body declarations
func (h *HandlerDef) BodyMeta() []ParamMetadata { return h.metaOf(BodyParam) }

func (h *HandlerDef) Interceptors() []any { return append([]any(nil), h.interceptors...) }
func (h *HandlerDef) Pipes() []any        { return append([]any(nil), h.pipes...) }
func (h *HandlerDef) Filters() []any      { return append([]any(nil), h.filters...) }

// UseInterceptors attaches interceptors to this handler only
func (h *HandlerDef) UseInterceptors(items ...any) *HandlerDef {
	h.interceptors = append(h.interceptors, items...)
	return h
}

// UsePipes attaches pipes to this handler's arguments
func (h *HandlerDef) UsePipes(items ...any) *HandlerDef {
	h.pipes = append(h.pipes, items...)
	return h
}

// UseFilters attaches exception filters to this handler
func (h *HandlerDef) UseFilters(items ...any) *HandlerDef {
	h.filters = append(h.filters, items...)
	return h
}
