package synapse

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_LoadIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	m := ContainerModule("counter", func(c *Container) error {
		runs.Add(1)
		return c.Bind(UseValue("n", 1))
	})

	c := NewContainer()
	require.NoError(t, c.Load(m))
	require.NoError(t, c.Load(m))
	assert.Equal(t, int32(1), runs.Load())
	assert.True(t, c.IsLoaded(m))
}

func TestContainer_LoadCycleTerminates(t *testing.T) {
	a := NewModule("a", Providers(UseValue("a", "A")))
	b := NewModule("b", Imports(a), Providers(UseValue("b", "B")))
	a.Import(b)

	c := NewContainer()
	require.NoError(t, c.Load(a))
	assert.True(t, c.IsBound("a"))
	assert.True(t, c.IsBound("b"))
}

func TestContainer_FailedLoadStaysLoaded(t *testing.T) {
	boom := errors.New("boom")
	m := ContainerModule("broken", func(*Container) error { return boom })

	c := NewContainer()
	assert.ErrorIs(t, c.Load(m), boom)
	assert.True(t, c.IsLoaded(m))
	assert.NoError(t, c.Load(m))
}

func TestContainer_LoadWithoutRegistration(t *testing.T) {
	c := NewContainer()
	assert.ErrorIs(t, c.Load(nil), ErrNoRegistration)
	assert.ErrorIs(t, c.Load(&Module{name: "empty"}), ErrNoRegistration)
}

func TestContainer_FirstProviderBindingWins(t *testing.T) {
	first := NewModule("first", Providers(UseValue("greeting", "hello")))
	second := NewModule("second", Providers(UseValue("greeting", "hi")))
	root := NewModule("root", Imports(first, second))

	c := NewContainer()
	require.NoError(t, c.Load(root))

	v, err := c.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

type repo struct {
	Name string
}

type service struct {
	Repo     *repo  `inject:""`
	Greeting string `inject:"greeting"`
	Missing  string `inject:"missing,optional"`
	ready    bool
}

func (s *service) Init(context.Context) error {
	s.ready = true
	return nil
}

func TestContainer_ClassInjection(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Bind(UseValue(TypeToken[*repo](), &repo{Name: "cats"})))
	require.NoError(t, c.Bind(UseValue("greeting", "hello")))
	require.NoError(t, c.Bind(Class[*service]()))

	svc, err := Resolve[*service](context.Background(), c, TypeToken[*service]())
	require.NoError(t, err)
	assert.Equal(t, "cats", svc.Repo.Name)
	assert.Equal(t, "hello", svc.Greeting)
	assert.Empty(t, svc.Missing)
	assert.True(t, svc.ready)

	again, err := Resolve[*service](context.Background(), c, TypeToken[*service]())
	require.NoError(t, err)
	assert.Same(t, svc, again)
}

func TestContainer_UseClassAndTransient(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Bind(UseClass[*repo]("repo", InScope(Transient))))

	a, err := c.Get("repo")
	require.NoError(t, err)
	b, err := c.Get("repo")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestContainer_InvalidProviders(t *testing.T) {
	c := NewContainer()
	assert.Error(t, c.Bind(UseValue(nil, 1)))
	assert.Error(t, c.Bind(Class[repo]()))
	assert.Error(t, c.Bind(UseFactory("f", nil)))
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Bind(UseValue("base", 20)))
	require.NoError(t, c.Bind(UseFactory("sum", func(ctx context.Context, r Resolver) (any, error) {
		base, err := r.GetAsync(ctx, "base")
		if err != nil {
			return nil, err
		}
		return base.(int) + 22, nil
	})))

	n, err := Resolve[int](context.Background(), c, "sum")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Resolve[string](context.Background(), c, "sum")
	assert.Error(t, err)
}

func TestContainer_CircularInjection(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Bind(UseFactory("a", func(ctx context.Context, r Resolver) (any, error) {
		return r.GetAsync(ctx, "b")
	})))
	require.NoError(t, c.Bind(UseFactory("b", func(ctx context.Context, r Resolver) (any, error) {
		return r.GetAsync(ctx, "a")
	})))

	_, err := c.Get("a")
	assert.ErrorIs(t, err, ErrCircularInjection)
}

func TestContainer_RequestValues(t *testing.T) {
	c := NewContainer()
	ctx := WithRequestScope(context.Background())
	require.NoError(t, BindRequestValue(ctx, RequestToken, "req"))

	v, err := c.GetAsync(ctx, RequestToken)
	require.NoError(t, err)
	assert.Equal(t, "req", v)

	_, err = c.Get(RequestToken)
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestContainer_RebindUnbind(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Bind(UseValue("k", 1)))
	assert.ErrorIs(t, c.Bind(UseValue("k", 2)), ErrAlreadyBound)
	require.NoError(t, c.Rebind(UseValue("k", 3)))

	v, _ := c.Get("k")
	assert.Equal(t, 3, v)
	assert.Contains(t, c.Tokens(), Token("k"))

	require.NoError(t, c.Unbind("k"))
	assert.False(t, c.IsBound("k"))
}
