package container

import (
	"context"
	"sync"
)

type requestScopeKey struct{}

// requestScope holds request-scoped instances and per-request values for one call.
type requestScope struct {
	mu        sync.Mutex
	instances map[*entry]any
	values    map[any]any
}

// WithRequestScope attaches a fresh request scope to ctx. Nested calls reuse the
// scope already present.
func WithRequestScope(ctx context.Context) context.Context {
	if requestScopeFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, requestScopeKey{}, &requestScope{
		instances: make(map[*entry]any),
		values:    make(map[any]any),
	})
}

// HasRequestScope reports whether ctx carries a request scope.
func HasRequestScope(ctx context.Context) bool {
	return requestScopeFrom(ctx) != nil
}

// BindRequestValue binds value under key for the lifetime of the request scope in ctx.
// It shadows any container binding for the same key.
func BindRequestValue(ctx context.Context, key any, value any) error {
	scope := requestScopeFrom(ctx)
	if scope == nil {
		return ErrNoRequestScope
	}

	scope.mu.Lock()
	defer scope.mu.Unlock()
	scope.values[key] = value
	return nil
}

func requestScopeFrom(ctx context.Context) *requestScope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(requestScopeKey{}).(*requestScope)
	return s
}

func (s *requestScope) value(key any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *requestScope) instance(e *entry) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.instances[e]
	return v, ok
}

func (s *requestScope) store(e *entry, instance any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.instances[e]; ok {
		return existing
	}
	s.instances[e] = instance
	return instance
}
