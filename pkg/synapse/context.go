package synapse

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID in and out
const RequestIDHeader = "X-Request-ID"

// ExecutionContext is created per request at controller resolution and threaded
// through parameter resolution, interceptors and exception filters.
type ExecutionContext struct {
	ctx       context.Context
	request   *Request
	route     RouteDescriptor
	params    map[string]string
	instance  any
	requestID string
	logger    *zap.Logger

	mu     sync.RWMutex
	values map[string]any
}

func newExecutionContext(ctx context.Context, req *Request, route RouteDescriptor, requestID string, logger *zap.Logger) *ExecutionContext {
	return &ExecutionContext{
		ctx:       ctx,
		request:   req,
		route:     route,
		requestID: requestID,
		logger:    logger.With(zap.String("request_id", requestID)),
	}
}

// NewExecutionContext builds a context outside the dispatcher, mostly for tests
// of interceptors and filters.
func NewExecutionContext(ctx context.Context, req *Request, route RouteDescriptor) *ExecutionContext {
	return newExecutionContext(ctx, req, route, "", zap.NewNop())
}

// Context returns the request context
func (ec *ExecutionContext) Context() context.Context { return ec.ctx }

// SetContext replaces the request context seen by everything downstream
func (ec *ExecutionContext) SetContext(ctx context.Context) { ec.ctx = ctx }

// Request returns the inbound request
func (ec *ExecutionContext) Request() *Request { return ec.request }

// Route returns the matched route
func (ec *ExecutionContext) Route() RouteDescriptor { return ec.route }

// Controller returns the matched route's controller metadata
func (ec *ExecutionContext) Controller() *ControllerDef { return ec.route.Controller }

// Handler returns the matched route's handler metadata
func (ec *ExecutionContext) Handler() *HandlerDef { return ec.route.Handler }

// Instance returns the resolved controller instance
func (ec *ExecutionContext) Instance() any { return ec.instance }

// Params returns the merged path parameters
func (ec *ExecutionContext) Params() map[string]string { return ec.params }

// RequestID returns the request ID
func (ec *ExecutionContext) RequestID() string { return ec.requestID }

// Logger returns a logger tagged with the request ID
func (ec *ExecutionContext) Logger() *zap.Logger { return ec.logger }

// Set stores a value for later interceptors and the handler's filters
func (ec *ExecutionContext) Set(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.values == nil {
		ec.values = make(map[string]any)
	}
	ec.values[key] = value
}

// Get retrieves a value stored with Set
func (ec *ExecutionContext) Get(key string) any {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.values[key]
}
