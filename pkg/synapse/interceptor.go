package synapse

import (
	"fmt"

	"go.uber.org/zap"
)

// CallHandler forwards to the rest of the chain
type CallHandler interface {
	Handle() (any, error)
}

// Interceptor wraps handler invocation. Interceptors run in declaration order, outermost first.
type Interceptor interface {
	Intercept(ec *ExecutionContext, next CallHandler) (any, error)
}

// InterceptorFunc adapts a function to Interceptor
type InterceptorFunc func(ec *ExecutionContext, next CallHandler) (any, error)

func (f InterceptorFunc) Intercept(ec *ExecutionContext, next CallHandler) (any, error) {
	return f(ec, next)
}

// CallHandlerFunc adapts a function to CallHandler
type CallHandlerFunc func() (any, error)

func (f CallHandlerFunc) Handle() (any, error) { return f() }

// ExecuteChain runs action wrapped by interceptors. An interceptor that fails
// before forwarding is skipped as if it had forwarded; one that fails after a
// successful forward yields the downstream result. Errors from downstream
// propagate unchanged.
func ExecuteChain(ec *ExecutionContext, interceptors []Interceptor, action func() (any, error)) (any, error) {
	c := &chain{ec: ec, interceptors: interceptors, action: action}
	return c.Handle()
}

type chain struct {
	ec           *ExecutionContext
	interceptors []Interceptor
	action       func() (any, error)
	cursor       int
}

func (c *chain) Handle() (any, error) {
	if c.cursor >= len(c.interceptors) {
		return c.action()
	}
	i := c.cursor
	c.cursor++

	layer := &layerNext{chain: c}
	result, err := c.invoke(c.interceptors[i], layer)
	if err == nil {
		return result, nil
	}

	logger := c.logger().With(zap.Int("interceptor", i), zap.String("type", fmt.Sprintf("%T", c.interceptors[i])))
	switch {
	case !layer.called:
		logger.Warn("interceptor failed before forwarding, continuing chain", zap.Error(err))
		return layer.Handle()
	case layer.err != nil:
		if err != layer.err {
			logger.Debug("interceptor replaced downstream error, keeping original", zap.Error(err))
		}
		return nil, layer.err
	default:
		logger.Warn("interceptor failed after forwarding, keeping handler result", zap.Error(err))
		return layer.result, nil
	}
}

func (c *chain) invoke(it Interceptor, next *layerNext) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("interceptor panic: %v", r)
			if next.called && next.err != nil {
				err = next.err
			}
		}
	}()
	return it.Intercept(c.ec, next)
}

func (c *chain) logger() *zap.Logger {
	if c.ec == nil || c.ec.logger == nil {
		return zap.NewNop()
	}
	return c.ec.logger
}

// layerNext is the next handle given to one interceptor; it records what downstream returned
type layerNext struct {
	chain  *chain
	called bool
	result any
	err    error
}

func (n *layerNext) Handle() (any, error) {
	n.called = true
	n.result, n.err = n.chain.Handle()
	return n.result, n.err
}
