package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("service not found")
	ErrAlreadyRegistered = errors.New("service already registered")
	ErrCircular          = errors.New("circular resolution detected")
	ErrNoRequestScope    = errors.New("request-scoped service resolved outside a request")
)

type Scope int

const (
	Singleton Scope = iota
	Transient
	Request
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case Request:
		return "request"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

type ProviderFunc func(ctx context.Context, r Resolver) (any, error)

type Resolver interface {
	Resolve(ctx context.Context, key any) (any, error)
	Has(key any) bool
}

type entry struct {
	key          any
	provider     ProviderFunc
	scope        Scope
	instance     any
	instantiated bool
}

type Container struct {
	mu       sync.RWMutex
	services map[any]*entry
	logger   *zap.Logger
}

type Config struct {
	Logger *zap.Logger
}

func New(cfg *Config) *Container {
	logger := zap.NewNop()
	if cfg != nil && cfg.Logger != nil {
		logger = cfg.Logger
	}

	return &Container{
		services: make(map[any]*entry),
		logger:   logger,
	}
}

func (c *Container) Register(key any, provider ProviderFunc, scope Scope) error {
	if provider == nil {
		return fmt.Errorf("nil provider for %s", KeyString(key))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, KeyString(key))
	}
	c.services[key] = &entry{key: key, provider: provider, scope: scope}
	return nil
}

func (c *Container) RegisterValue(key any, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, KeyString(key))
	}
	c.services[key] = &entry{key: key, instance: value, instantiated: true}
	return nil
}

func (c *Container) Replace(key any, provider ProviderFunc, scope Scope) error {
	if provider == nil {
		return fmt.Errorf("nil provider for %s", KeyString(key))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.services[key] = &entry{key: key, provider: provider, scope: scope}
	return nil
}

func (c *Container) ReplaceValue(key any, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.services[key] = &entry{key: key, instance: value, instantiated: true}
}

func (c *Container) Remove(key any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[key]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, KeyString(key))
	}
	delete(c.services, key)
	return nil
}

func (c *Container) Has(key any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.services[key]
	return exists
}

func (c *Container) Keys() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]any, 0, len(c.services))
	for key := range c.services {
		keys = append(keys, key)
	}
	return keys
}

func (c *Container) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.services)
}

// Resolve returns the instance bound to key. Values bound into the request scope
// of ctx shadow container bindings.
func (c *Container) Resolve(ctx context.Context, key any) (any, error) {
	if scope := requestScopeFrom(ctx); scope != nil {
		if v, ok := scope.value(key); ok {
			return v, nil
		}
	}

	if path, found := chainFrom(ctx).find(key); found {
		return nil, fmt.Errorf("%w: %s", ErrCircular, path)
	}

	c.mu.RLock()
	e, exists := c.services[key]
	c.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, KeyString(key))
	}

	ctx = withLink(ctx, key)

	switch e.scope {
	case Transient:
		return c.build(ctx, e)
	case Request:
		return c.resolveRequest(ctx, e)
	default:
		return c.resolveSingleton(ctx, e)
	}
}

// The provider runs without c.mu held so it may resolve its own dependencies.
// When two goroutines race on the same singleton, the first stored instance wins.
func (c *Container) resolveSingleton(ctx context.Context, e *entry) (any, error) {
	c.mu.RLock()
	if e.instantiated {
		instance := e.instance
		c.mu.RUnlock()
		return instance, nil
	}
	c.mu.RUnlock()

	instance, err := c.build(ctx, e)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.instantiated {
		return e.instance, nil
	}
	e.instance = instance
	e.instantiated = true
	return instance, nil
}

func (c *Container) resolveRequest(ctx context.Context, e *entry) (any, error) {
	scope := requestScopeFrom(ctx)
	if scope == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestScope, KeyString(e.key))
	}

	if instance, ok := scope.instance(e); ok {
		return instance, nil
	}

	instance, err := c.build(ctx, e)
	if err != nil {
		return nil, err
	}
	return scope.store(e, instance), nil
}

func (c *Container) build(ctx context.Context, e *entry) (any, error) {
	c.logger.Debug("building service",
		zap.String("key", KeyString(e.key)),
		zap.Stringer("scope", e.scope))

	instance, err := e.provider(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("provider failed for %s: %w", KeyString(e.key), err)
	}
	return instance, nil
}

// KeyString renders a service key for error messages.
func KeyString(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case reflect.Type:
		return k.String()
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprintf("%v", key)
	}
}

type chainKey struct{}

// link is one step of the resolution chain carried in the context
type link struct {
	key    any
	parent *link
}

func chainFrom(ctx context.Context) *link {
	l, _ := ctx.Value(chainKey{}).(*link)
	return l
}

func withLink(ctx context.Context, key any) context.Context {
	return context.WithValue(ctx, chainKey{}, &link{key: key, parent: chainFrom(ctx)})
}

func (l *link) find(key any) (string, bool) {
	var path []string
	found := false
	for cur := l; cur != nil; cur = cur.parent {
		path = append(path, KeyString(cur.key))
		if cur.key == key {
			found = true
			break
		}
	}
	if !found {
		return "", false
	}

	// path runs innermost first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(append(path, KeyString(key)), " -> "), true
}
