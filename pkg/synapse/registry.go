package synapse

import (
	"fmt"
	"strings"
)

// RouteDescriptor contains metadata about a resolved route
type RouteDescriptor struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, etc.)
	Method string

	// Path is the full route pattern with ":name" parameter segments (e.g., "/cats/:id")
	Path string

	// MethodName is the name of the controller method that handles the route
	MethodName string

	// Controller is the controller that owns this route
	Controller *ControllerDef

	// Handler is the handler metadata for the route
	Handler *HandlerDef
}

func (r RouteDescriptor) String() string {
	return fmt.Sprintf("%s %s -> %s.%s", r.Method, r.Path, r.Controller, r.MethodName)
}

// RouteMatch is the result of a successful lookup
type RouteMatch struct {
	Route  RouteDescriptor
	Params map[string]string

	index int
}

type tableEntry struct {
	route   RouteDescriptor
	pattern *Pattern
}

// RouteTable is the flat, ordered route table. It is immutable once built.
type RouteTable struct {
	entries []tableEntry
}

// NewRouteTable compiles routes in the given order
func NewRouteTable(routes []RouteDescriptor) *RouteTable {
	t := &RouteTable{entries: make([]tableEntry, 0, len(routes))}
	for _, r := range routes {
		r.Method = strings.ToUpper(r.Method)
		r.Path = NormalizePath(r.Path)
		t.entries = append(t.entries, tableEntry{route: r, pattern: CompilePattern(r.Path)})
	}
	return t
}

// Lookup scans the table in order and returns the first route whose method and
// pattern both match. A miss returns a route-not-found error.
func (t *RouteTable) Lookup(method, path string) (*RouteMatch, error) {
	method = strings.ToUpper(method)
	for i, e := range t.entries {
		if e.route.Method != method {
			continue
		}
		if params, ok := e.pattern.Params(path); ok {
			return &RouteMatch{Route: e.route, Params: params, index: i}, nil
		}
	}
	return nil, NewRouteNotFound(method, NormalizePath(path))
}

// Len returns the number of routes
func (t *RouteTable) Len() int {
	return len(t.entries)
}

// Routes returns all routes in table order
func (t *RouteTable) Routes() []RouteDescriptor {
	out := make([]RouteDescriptor, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.route
	}
	return out
}

// ByController returns routes filtered by controller name
func (t *RouteTable) ByController(name string) []RouteDescriptor {
	var filtered []RouteDescriptor
	for _, e := range t.entries {
		if e.route.Controller != nil && e.route.Controller.Name() == name {
			filtered = append(filtered, e.route)
		}
	}
	return filtered
}

// ByMethod returns routes filtered by HTTP method
func (t *RouteTable) ByMethod(method string) []RouteDescriptor {
	var filtered []RouteDescriptor
	method = strings.ToUpper(method)
	for _, e := range t.entries {
		if e.route.Method == method {
			filtered = append(filtered, e.route)
		}
	}
	return filtered
}
