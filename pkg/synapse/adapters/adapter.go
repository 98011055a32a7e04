// Package adapters mounts a synapse server onto a host web framework.
//
// Every adapter registers each route natively on the host router, so the host
// extracts path parameters, and installs a fallback that forwards anything the
// host router did not match. Both paths end in Server.Handle, which performs the
// authoritative match; parameters from its own matcher win over the host's.
package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/toyz/synapse/pkg/synapse"
)

// Host is a web framework a server can be mounted on
type Host interface {
	// Mount registers the server's routes and fallback on the host
	Mount(s *synapse.Server) error
	Start(addr string) error
	Stop(ctx context.Context) error
	Name() string
}

// PathStyle is the parameter syntax of a host router
type PathStyle int

const (
	// ColonStyle writes parameters as ":id" (echo, gin, fiber)
	ColonStyle PathStyle = iota
	// BraceStyle writes parameters as "{id}" (chi)
	BraceStyle
)

// HostPath converts a route pattern to the host router's syntax
// Converts: /cats/:id -> /cats/{id} for BraceStyle
func HostPath(pattern string, style PathStyle) string {
	parts := synapse.CompilePattern(pattern).Parts()
	if len(parts) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, part := range parts {
		b.WriteString("/")
		switch {
		case part.Type == synapse.ParameterPart && style == BraceStyle:
			b.WriteString("{" + part.Value + "}")
		case part.Type == synapse.ParameterPart:
			b.WriteString(":" + part.Value)
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

var braceParamRegex = regexp.MustCompile(`\{([^}:]+)(:[^}]*)?\}`)

// FromHostPath converts brace-style parameters back to route pattern syntax
// Converts: /cats/{id} -> /cats/:id, and /cats/{id:[0-9]+} -> /cats/:id
func FromHostPath(path string) string {
	return braceParamRegex.ReplaceAllString(path, `:$1`)
}

type nativeRoute struct {
	method string
	path   string
	route  synapse.RouteDescriptor
}

// nativeRoutes lists the routes to register on the host under the current global
// prefix. Routes that differ only by parameter names collapse into the first one.
func nativeRoutes(s *synapse.Server, style PathStyle) []nativeRoute {
	seen := make(map[string]struct{})
	var out []nativeRoute
	for _, r := range s.Routes() {
		full := synapse.JoinPaths(s.GlobalPrefix(), r.Path)
		key := r.Method + " " + shape(full)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, nativeRoute{method: r.Method, path: HostPath(full, style), route: r})
	}
	return out
}

func shape(pattern string) string {
	var b strings.Builder
	for _, part := range synapse.CompilePattern(pattern).Parts() {
		b.WriteString("/")
		if part.Type == synapse.ParameterPart {
			b.WriteString(":")
			continue
		}
		b.WriteString(part.Value)
	}
	return b.String()
}

// register calls fn and turns a host router panic into a warning; the route is
// still served through the fallback
func register(logger *zap.Logger, host string, r nativeRoute, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("host router rejected route, serving it through the fallback",
				zap.String("host", host),
				zap.String("method", r.method),
				zap.String("path", r.path),
				zap.String("reason", fmt.Sprint(rec)))
		}
	}()
	fn()
}

func paramsFrom(names, values []string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			out[name] = values[i]
		}
	}
	return out
}
