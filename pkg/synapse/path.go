package synapse

import (
	"regexp"
	"strings"
	"sync"
)

// PathPartType represents the type of path part
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
)

// PathPart represents a single segment of a route pattern
type PathPart struct {
	Type  PathPartType
	Value string // For static parts: the literal text, for parameters: the parameter name
}

// Pattern is a compiled route pattern such as "/cats/:id".
// Segments must match one to one; there are no wildcard or optional segments.
type Pattern struct {
	raw   string
	parts []PathPart
	names []string
	re    *regexp.Regexp
}

// CompilePattern compiles a route pattern. Trailing slashes are ignored.
func CompilePattern(pattern string) *Pattern {
	raw := NormalizePath(pattern)
	p := &Pattern{raw: raw}

	var expr strings.Builder
	expr.WriteString("^")
	for _, seg := range splitSegments(raw) {
		expr.WriteString("/")
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			name := seg[1:]
			p.parts = append(p.parts, PathPart{Type: ParameterPart, Value: name})
			p.names = append(p.names, name)
			expr.WriteString("([^/]+)")
			continue
		}
		p.parts = append(p.parts, PathPart{Type: StaticPart, Value: seg})
		expr.WriteString(regexp.QuoteMeta(seg))
	}
	if len(p.parts) == 0 {
		expr.WriteString("/")
	}
	expr.WriteString("$")

	p.re = regexp.MustCompile(expr.String())
	return p
}

// String returns the normalized pattern
func (p *Pattern) String() string {
	return p.raw
}

// Parts returns the pattern's segments
func (p *Pattern) Parts() []PathPart {
	return append([]PathPart(nil), p.parts...)
}

// Names returns the parameter names in segment order
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

// Match reports whether pathname matches the pattern
func (p *Pattern) Match(pathname string) bool {
	return p.re.MatchString(NormalizePath(pathname))
}

// Params matches pathname and binds each ":name" segment to the corresponding path segment
func (p *Pattern) Params(pathname string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(NormalizePath(pathname))
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(p.names))
	for i, name := range p.names {
		params[name] = m[i+1]
	}
	return params, true
}

var patternCache sync.Map // string -> *Pattern

func cachedPattern(pattern string) *Pattern {
	if p, ok := patternCache.Load(pattern); ok {
		return p.(*Pattern)
	}
	p, _ := patternCache.LoadOrStore(pattern, CompilePattern(pattern))
	return p.(*Pattern)
}

// Match reports whether pathname matches pattern
func Match(pathname, pattern string) bool {
	return cachedPattern(pattern).Match(pathname)
}

// ExtractParams binds pattern parameters to pathname segments by position.
// It returns nil when the path does not match.
func ExtractParams(pathname, pattern string) map[string]string {
	params, ok := cachedPattern(pattern).Params(pathname)
	if !ok {
		return nil
	}
	return params
}

// NormalizePath ensures a leading slash, collapses repeated slashes and drops a trailing slash
func NormalizePath(path string) string {
	segments := splitSegments(path)
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// JoinPaths joins route path fragments into one normalized path
func JoinPaths(parts ...string) string {
	return NormalizePath(strings.Join(parts, "/"))
}

func splitSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// StripPrefix removes a global prefix from path on a segment boundary.
// It reports false when path is outside the prefix.
func StripPrefix(path, prefix string) (string, bool) {
	prefix = NormalizePath(prefix)
	path = NormalizePath(path)
	if prefix == "/" {
		return path, true
	}
	if path == prefix {
		return "/", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):], true
	}
	return path, false
}
