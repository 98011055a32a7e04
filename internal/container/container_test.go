package container

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	require.NoError(t, c.Register("config", func(ctx context.Context, r Resolver) (any, error) {
		return map[string]string{"port": "8080"}, nil
	}, Singleton))

	instance, err := c.Resolve(context.Background(), "config")
	require.NoError(t, err)
	assert.Equal(t, "8080", instance.(map[string]string)["port"])
}

func TestContainer_RegisterTwice(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.RegisterValue("a", 1))
	err := c.RegisterValue("a", 2)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))
}

func TestContainer_NotFound(t *testing.T) {
	t.Parallel()

	c := New(nil)
	_, err := c.Resolve(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "missing")
}

func TestContainer_TypeKeys(t *testing.T) {
	t.Parallel()

	type service struct{ name string }
	key := reflect.TypeOf(&service{})

	c := New(nil)
	require.NoError(t, c.RegisterValue(key, &service{name: "svc"}))
	assert.True(t, c.Has(key))
	assert.False(t, c.Has(reflect.TypeOf(service{})))

	v, err := c.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "svc", v.(*service).name)
}

func TestContainer_SingletonBuiltOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := New(nil)
	require.NoError(t, c.Register("s", func(ctx context.Context, r Resolver) (any, error) {
		calls.Add(1)
		return new(int), nil
	}, Singleton))

	a, err := c.Resolve(context.Background(), "s")
	require.NoError(t, err)
	b, err := c.Resolve(context.Background(), "s")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, int32(1), calls.Load())
}

func TestContainer_SingletonConcurrent(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.Register("s", func(ctx context.Context, r Resolver) (any, error) {
		return new(int), nil
	}, Singleton))

	results := make([]any, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Resolve(context.Background(), "s")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	first, err := c.Resolve(context.Background(), "s")
	require.NoError(t, err)
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestContainer_Transient(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.Register("t", func(ctx context.Context, r Resolver) (any, error) {
		return new(int), nil
	}, Transient))

	a, _ := c.Resolve(context.Background(), "t")
	b, _ := c.Resolve(context.Background(), "t")
	assert.NotSame(t, a, b)
}

func TestContainer_RequestScope(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.Register("r", func(ctx context.Context, r Resolver) (any, error) {
		return new(int), nil
	}, Request))

	_, err := c.Resolve(context.Background(), "r")
	assert.True(t, errors.Is(err, ErrNoRequestScope))

	req1 := WithRequestScope(context.Background())
	req2 := WithRequestScope(context.Background())

	a1, err := c.Resolve(req1, "r")
	require.NoError(t, err)
	a2, _ := c.Resolve(req1, "r")
	b1, _ := c.Resolve(req2, "r")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)
	assert.Equal(t, req1, WithRequestScope(req1))
}

func TestContainer_RequestValuesShadowBindings(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.RegisterValue("request", "global"))

	assert.ErrorIs(t, BindRequestValue(context.Background(), "request", "x"), ErrNoRequestScope)

	ctx := WithRequestScope(context.Background())
	require.NoError(t, BindRequestValue(ctx, "request", "scoped"))

	v, err := c.Resolve(ctx, "request")
	require.NoError(t, err)
	assert.Equal(t, "scoped", v)

	v, err = c.Resolve(context.Background(), "request")
	require.NoError(t, err)
	assert.Equal(t, "global", v)
}

func TestContainer_CircularResolution(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.Register("a", func(ctx context.Context, r Resolver) (any, error) {
		return r.Resolve(ctx, "b")
	}, Singleton))
	require.NoError(t, c.Register("b", func(ctx context.Context, r Resolver) (any, error) {
		return r.Resolve(ctx, "a")
	}, Singleton))

	_, err := c.Resolve(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircular))
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestContainer_SameKeyInParallelChainsIsNotCircular(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.RegisterValue("leaf", 1))
	require.NoError(t, c.Register("pair", func(ctx context.Context, r Resolver) (any, error) {
		a, err := r.Resolve(ctx, "leaf")
		if err != nil {
			return nil, err
		}
		b, err := r.Resolve(ctx, "leaf")
		if err != nil {
			return nil, err
		}
		return []any{a, b}, nil
	}, Transient))

	v, err := c.Resolve(context.Background(), "pair")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 1}, v)
}

func TestContainer_ReplaceAndRemove(t *testing.T) {
	t.Parallel()

	c := New(nil)
	require.NoError(t, c.RegisterValue("v", "old"))
	c.ReplaceValue("v", "new")

	v, err := c.Resolve(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	require.NoError(t, c.Replace("v", func(ctx context.Context, r Resolver) (any, error) {
		return "built", nil
	}, Singleton))
	v, _ = c.Resolve(context.Background(), "v")
	assert.Equal(t, "built", v)

	require.NoError(t, c.Remove("v"))
	assert.False(t, c.Has("v"))
	assert.ErrorIs(t, c.Remove("v"), ErrNotFound)
	assert.Equal(t, 0, c.Size())
}

func TestContainer_ProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	c := New(nil)
	require.NoError(t, c.Register("bad", func(ctx context.Context, r Resolver) (any, error) {
		return nil, boom
	}, Singleton))

	_, err := c.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "provider failed for bad")
}
