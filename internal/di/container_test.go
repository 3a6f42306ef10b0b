package di

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/pageforge/internal/errors"
)

type widget struct {
	n int
}

func TestContainer_ResolveTransient(t *testing.T) {
	c := NewContainer()
	c.Register("widget", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	})

	a, err := c.Resolve("widget")
	require.NoError(t, err)
	b, err := c.Resolve("widget")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestContainer_ResolveSingleton(t *testing.T) {
	c := NewContainer()
	calls := 0
	c.RegisterSingleton("widget", func(Resolver) (interface{}, error) {
		calls++
		return &widget{n: calls}, nil
	})

	a, err := c.Resolve("widget")
	require.NoError(t, err)
	b, err := c.Resolve("widget")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestContainer_ResolveUnregistered(t *testing.T) {
	c := NewContainer()

	_, err := c.Resolve("missing")
	require.Error(t, err)
	assert.True(t, errors.IsResolution(err))
	assert.ErrorIs(t, err, errors.NewResolutionError(errors.ErrCodeNotRegistered, "", ""))
}

func TestContainer_CircularDependency(t *testing.T) {
	c := NewContainer()
	c.Register("a", func(r Resolver) (interface{}, error) {
		return r.Resolve("b")
	})
	c.Register("b", func(r Resolver) (interface{}, error) {
		return r.Resolve("a")
	})

	_, err := c.Resolve("a")
	require.Error(t, err)
	assert.True(t, errors.IsResolution(err))
	assert.ErrorIs(t, err, errors.NewResolutionError(errors.ErrCodeCircularDependency, "", ""))
}

func TestContainer_DependencyResolution(t *testing.T) {
	c := NewContainer()
	c.RegisterSingleton("base", func(Resolver) (interface{}, error) {
		return &widget{n: 7}, nil
	})
	c.Register("derived", func(r Resolver) (interface{}, error) {
		base, err := r.Resolve("base")
		if err != nil {
			return nil, err
		}
		return &widget{n: base.(*widget).n + 1}, nil
	})

	instance, err := c.Resolve("derived")
	require.NoError(t, err)
	assert.Equal(t, 8, instance.(*widget).n)
}

func TestContainer_LastRegistrationWins(t *testing.T) {
	c := NewContainer()
	c.Register("widget", func(Resolver) (interface{}, error) {
		return &widget{n: 1}, nil
	})
	c.Register("widget", func(Resolver) (interface{}, error) {
		return &widget{n: 2}, nil
	})

	instance, err := c.Resolve("widget")
	require.NoError(t, err)
	assert.Equal(t, 2, instance.(*widget).n)
}

func TestContainer_ScopedWithinScope(t *testing.T) {
	c := NewContainer()
	calls := 0
	c.RegisterScoped("widget", func(Resolver) (interface{}, error) {
		calls++
		return &widget{n: calls}, nil
	})

	scope := c.CreateScope()

	a, err := scope.Resolve("widget")
	require.NoError(t, err)
	b, err := scope.Resolve("widget")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestContainer_ScopedIsolationBetweenScopes(t *testing.T) {
	c := NewContainer()
	c.RegisterScoped("widget", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	})

	s1 := c.CreateScope()
	s2 := c.CreateScope()

	a, err := s1.Resolve("widget")
	require.NoError(t, err)
	b, err := s2.Resolve("widget")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestContainer_ScopedOutsideScope(t *testing.T) {
	c := NewContainer()
	calls := 0
	c.RegisterScoped("widget", func(Resolver) (interface{}, error) {
		calls++
		return &widget{n: calls}, nil
	})

	// Outside a scope each resolve yields a fresh uncached instance.
	a, err := c.Resolve("widget")
	require.NoError(t, err)
	b, err := c.Resolve("widget")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, calls)
}

func TestContainer_ScopeSharesSingletons(t *testing.T) {
	c := NewContainer()
	c.RegisterSingleton("widget", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	})

	root, err := c.Resolve("widget")
	require.NoError(t, err)

	scoped, err := c.CreateScope().Resolve("widget")
	require.NoError(t, err)

	assert.Same(t, root, scoped)
}

func TestContainer_RegisterInstance(t *testing.T) {
	c := NewContainer()
	instance := &widget{n: 42}
	c.RegisterInstance("widget", instance)

	resolved, err := c.Resolve("widget")
	require.NoError(t, err)
	assert.Same(t, instance, resolved)
}

func TestContainer_Dispose(t *testing.T) {
	c := NewContainer()
	disposed := []string{}
	c.RegisterSingleton("a", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	}).WithDisposer(func(interface{}) {
		disposed = append(disposed, "a")
	})
	c.RegisterSingleton("b", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	})

	_, err := c.Resolve("a")
	require.NoError(t, err)
	_, err = c.Resolve("b")
	require.NoError(t, err)

	c.Dispose()
	assert.Equal(t, []string{"a"}, disposed)

	// Caches are cleared; the next resolve constructs again.
	again, err := c.Resolve("a")
	require.NoError(t, err)
	assert.NotNil(t, again)
	assert.Len(t, disposed, 1)
}

func TestContainer_DisposeScope(t *testing.T) {
	c := NewContainer()
	disposed := 0
	c.RegisterScoped("widget", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	}).WithDisposer(func(interface{}) {
		disposed++
	})

	scope := c.CreateScope()
	_, err := scope.Resolve("widget")
	require.NoError(t, err)

	scope.Dispose()
	assert.Equal(t, 1, disposed)
}

func TestContainer_Metadata(t *testing.T) {
	c := NewContainer()
	c.Register("widget", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	}).WithMetadata("owner", "composer")

	reg, ok := c.GetRegistration("widget")
	require.True(t, ok)
	assert.Equal(t, "composer", reg.Metadata["owner"])
	assert.Equal(t, Transient, reg.Lifetime)
}

func TestContainer_HasAndList(t *testing.T) {
	c := NewContainer()
	c.Register("a", func(Resolver) (interface{}, error) { return nil, nil })
	c.RegisterSingleton("b", func(Resolver) (interface{}, error) { return nil, nil })

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("z"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.ListServices())
}

func TestContainer_ScopeRegistrationVisibleToRoot(t *testing.T) {
	root := NewContainer()
	scope := root.CreateScope()

	scope.Register("late", func(Resolver) (interface{}, error) {
		return &widget{n: 1}, nil
	})
	assert.True(t, root.Has("late"))

	scope.RegisterInstance("inst", &widget{n: 2})
	got, err := root.Resolve("inst")
	require.NoError(t, err)
	assert.Equal(t, 2, got.(*widget).n)
}

func TestContainer_ConcurrentScopeRegisterAndRootResolve(t *testing.T) {
	root := NewContainer()
	root.RegisterSingleton("svc", func(Resolver) (interface{}, error) {
		return &widget{}, nil
	})
	scope := root.CreateScope()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			scope.Register(fmt.Sprintf("svc-%d", i), func(Resolver) (interface{}, error) {
				return &widget{n: i}, nil
			})
		}(i)
		go func() {
			defer wg.Done()
			_, err := root.Resolve("svc")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		assert.True(t, root.Has(fmt.Sprintf("svc-%d", i)))
	}
}

func TestLifetime_String(t *testing.T) {
	assert.Equal(t, "transient", Transient.String())
	assert.Equal(t, "singleton", Singleton.String())
	assert.Equal(t, "scoped", Scoped.String())
	assert.Equal(t, "unknown", Lifetime(9).String())
}
