package synapse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/toyz/synapse/internal/container"
)

// Container errors, matchable with errors.Is
var (
	ErrNotBound          = container.ErrNotFound
	ErrAlreadyBound      = container.ErrAlreadyRegistered
	ErrCircularInjection = container.ErrCircular
	ErrNoRequestScope    = container.ErrNoRequestScope
	ErrNoRegistration    = errors.New("module has no registration closure")
)

// RequestToken resolves to the *Request being dispatched, inside a request scope
var RequestToken = NewSymbol("request")

// ExecutionContextToken resolves to the *ExecutionContext of the request being dispatched
var ExecutionContextToken = NewSymbol("execution-context")

// Container wraps the DI engine and guarantees each module is loaded at most once
type Container struct {
	inner  *container.Container
	logger *zap.Logger

	mu     sync.Mutex
	loaded map[*Module]struct{}
}

// ContainerOption configures a Container
type ContainerOption func(*Container)

// WithContainerLogger sets the container's logger
func WithContainerLogger(l *zap.Logger) ContainerOption {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContainer creates an empty container
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		logger: zap.NewNop(),
		loaded: make(map[*Module]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.inner = container.New(&container.Config{Logger: c.logger})
	return c
}

// Load runs the module's registration closure unless the module was loaded before.
// The module is marked loaded before its closure runs, so cyclic imports terminate.
func (c *Container) Load(m *Module) error {
	if m == nil || m.register == nil {
		return fmt.Errorf("load %v: %w", m, ErrNoRegistration)
	}

	c.mu.Lock()
	if _, done := c.loaded[m]; done {
		c.mu.Unlock()
		return nil
	}
	c.loaded[m] = struct{}{}
	c.mu.Unlock()

	c.logger.Debug("loading module", zap.String("module", m.String()))
	return m.register(c)
}

// IsLoaded reports whether m has been loaded
func (c *Container) IsLoaded(m *Module) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, done := c.loaded[m]
	return done
}

// Bind registers a provider; the token must not be bound yet
func (c *Container) Bind(p Provider) error {
	if err := p.validate(); err != nil {
		return err
	}
	return c.inner.Register(p.Token, p.providerFunc(c), p.Scope)
}

// Rebind replaces whatever is bound to the provider's token
func (c *Container) Rebind(p Provider) error {
	if err := p.validate(); err != nil {
		return err
	}
	return c.inner.Replace(p.Token, p.providerFunc(c), p.Scope)
}

// Unbind removes the binding for token
func (c *Container) Unbind(token Token) error {
	return c.inner.Remove(token)
}

// IsBound reports whether token has a binding
func (c *Container) IsBound(token Token) bool {
	return c.inner.Has(token)
}

// Get resolves token outside any request
func (c *Container) Get(token Token) (any, error) {
	return c.GetAsync(context.Background(), token)
}

// GetAsync resolves token, running factories as needed. Request-scoped
// providers need a ctx prepared by WithRequestScope.
func (c *Container) GetAsync(ctx context.Context, token Token) (any, error) {
	return c.inner.Resolve(ctx, token)
}

// Tokens returns every bound token
func (c *Container) Tokens() []Token {
	return c.inner.Keys()
}

// Resolve resolves token and asserts its type
func Resolve[T any](ctx context.Context, c *Container, token Token) (T, error) {
	var zero T
	v, err := c.GetAsync(ctx, token)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s resolved to %T, not %s", container.KeyString(token), v, TypeToken[T]())
	}
	return out, nil
}

// WithRequestScope attaches a request scope to ctx
func WithRequestScope(ctx context.Context) context.Context {
	return container.WithRequestScope(ctx)
}

// BindRequestValue binds value under token for the request scope in ctx only
func BindRequestValue(ctx context.Context, token Token, value any) error {
	return container.BindRequestValue(ctx, token, value)
}
