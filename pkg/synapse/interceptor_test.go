package synapse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEC() *ExecutionContext {
	req, _ := NewRequest("GET", "/")
	return NewExecutionContext(context.Background(), req, RouteDescriptor{})
}

func tracing(name string, log *[]string) Interceptor {
	return InterceptorFunc(func(_ *ExecutionContext, next CallHandler) (any, error) {
		*log = append(*log, name+">")
		v, err := next.Handle()
		*log = append(*log, "<"+name)
		return v, err
	})
}

func TestExecuteChain_Order(t *testing.T) {
	var log []string
	result, err := ExecuteChain(testEC(), []Interceptor{tracing("a", &log), tracing("b", &log)}, func() (any, error) {
		log = append(log, "handler")
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []string{"a>", "b>", "handler", "<b", "<a"}, log)
}

func TestExecuteChain_NoInterceptors(t *testing.T) {
	result, err := ExecuteChain(testEC(), nil, func() (any, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestExecuteChain_FailureBeforeForwardIsSkipped(t *testing.T) {
	var calls int
	x := InterceptorFunc(func(*ExecutionContext, CallHandler) (any, error) {
		return nil, errors.New("x")
	})
	y := InterceptorFunc(func(_ *ExecutionContext, next CallHandler) (any, error) {
		v, err := next.Handle()
		return []any{"y", v}, err
	})

	result, err := ExecuteChain(testEC(), []Interceptor{x, y}, func() (any, error) {
		calls++
		return "A", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"y", "A"}, result)
	assert.Equal(t, 1, calls)
}

func TestExecuteChain_PanicBeforeForwardIsSkipped(t *testing.T) {
	p := InterceptorFunc(func(*ExecutionContext, CallHandler) (any, error) {
		panic("boom")
	})

	result, err := ExecuteChain(testEC(), []Interceptor{p}, func() (any, error) { return "A", nil })
	require.NoError(t, err)
	assert.Equal(t, "A", result)
}

func TestExecuteChain_FailureAfterForwardKeepsResult(t *testing.T) {
	var calls int
	after := InterceptorFunc(func(_ *ExecutionContext, next CallHandler) (any, error) {
		if _, err := next.Handle(); err != nil {
			return nil, err
		}
		return nil, errors.New("post-processing failed")
	})

	result, err := ExecuteChain(testEC(), []Interceptor{after}, func() (any, error) {
		calls++
		return "A", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "A", result)
	assert.Equal(t, 1, calls, "handler must not run twice")
}

func TestExecuteChain_HandlerErrorPropagates(t *testing.T) {
	boom := errors.New("handler failed")
	var log []string

	_, err := ExecuteChain(testEC(), []Interceptor{tracing("a", &log)}, func() (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a>", "<a"}, log)
}

func TestExecuteChain_DownstreamErrorIsNotReplaced(t *testing.T) {
	boom := errors.New("boom")
	rewrap := InterceptorFunc(func(_ *ExecutionContext, next CallHandler) (any, error) {
		_, err := next.Handle()
		return nil, errors.New("rewrapped: " + err.Error())
	})

	_, err := ExecuteChain(testEC(), []Interceptor{rewrap}, func() (any, error) {
		return nil, boom
	})
	assert.Same(t, boom, err)
}

func TestExecuteChain_InterceptorCanShortCircuit(t *testing.T) {
	cached := InterceptorFunc(func(*ExecutionContext, CallHandler) (any, error) {
		return "cached", nil
	})
	result, err := ExecuteChain(testEC(), []Interceptor{cached}, func() (any, error) {
		t.Fatal("handler should not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
}
