package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(key string) registry.Handler {
	return func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		return map[string]any{"by": key}, nil
	}
}

func TestRegistry_ResolveOrder(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("email", constant("email"))
	r.Register("action", constant("action"))
	ctx := context.Background()

	t.Run("type wins over handlerType", func(t *testing.T) {
		node := &domain.Node{Type: domain.NodeTypeAction, Config: map[string]any{"handlerType": "email"}}
		fn, ok := r.Resolve(node)
		require.True(t, ok)
		out, err := fn(ctx, node, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "action", out["by"])
	})

	t.Run("falls back to handlerType", func(t *testing.T) {
		node := &domain.Node{Type: "custom", Config: map[string]any{"handlerType": "email"}}
		fn, ok := r.Resolve(node)
		require.True(t, ok)
		out, _ := fn(ctx, node, nil, nil)
		assert.Equal(t, "email", out["by"])
	})

	t.Run("unresolved", func(t *testing.T) {
		_, ok := r.Resolve(&domain.Node{Type: "custom"})
		assert.False(t, ok)
		_, ok = r.Resolve(&domain.Node{Type: "custom", Config: map[string]any{"handlerType": "sms"}})
		assert.False(t, ok)
	})
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("x", constant("first"))
	r.Register("x", constant("second"))

	out, err := r.Execute(context.Background(), "x", &domain.Node{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", out["by"])
	assert.Equal(t, []string{"x"}, r.Names())
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	_, err := registry.NewRegistry().Execute(context.Background(), "missing", &domain.Node{}, nil, nil)
	assert.ErrorContains(t, err, "handler not found: missing")
}

func TestRegistry_PropagatesHandlerError(t *testing.T) {
	r := registry.NewRegistry()
	boom := errors.New("boom")
	r.Register("fail", func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		return nil, boom
	})
	_, err := r.Execute(context.Background(), "fail", &domain.Node{}, nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := registry.NewDefaultRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("custom", constant("custom"))
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Resolve(&domain.Node{Type: domain.NodeTypeTrigger})
		}()
	}
	wg.Wait()
	_, ok := r.Lookup("custom")
	assert.True(t, ok)
}

func TestBuiltins(t *testing.T) {
	r := registry.NewDefaultRegistry()
	ctx := context.Background()
	input := map[string]any{"name": "World"}

	for _, typ := range []domain.NodeType{domain.NodeTypeTrigger, domain.NodeTypeOutput, domain.NodeTypeMerge, domain.NodeTypeParallel} {
		fn, ok := r.Resolve(&domain.Node{Type: typ})
		require.True(t, ok, typ)
		out, err := fn(ctx, &domain.Node{Type: typ}, input, nil)
		require.NoError(t, err)
		assert.Equal(t, input, out, typ)
	}

	_, ok := r.Lookup(string(domain.NodeTypeAction))
	assert.False(t, ok, "action must be bound by the host")
}

func TestTransform(t *testing.T) {
	ctx := context.Background()

	t.Run("substitutes placeholders", func(t *testing.T) {
		node := &domain.Node{Type: domain.NodeTypeTransform, Config: map[string]any{"expression": "Hello {{name}}! You are {{age}}. {{missing}}"}}
		input := map[string]any{"name": "World", "age": 42}

		out, err := registry.Transform(ctx, node, input, nil)
		require.NoError(t, err)
		assert.Equal(t, "Hello World! You are 42. {{missing}}", out["transformed"])
		assert.Equal(t, "World", out["name"])
		assert.NotContains(t, input, "transformed", "input must not be mutated")
	})

	t.Run("missing expression", func(t *testing.T) {
		out, err := registry.Transform(ctx, &domain.Node{Type: domain.NodeTypeTransform}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "", out["transformed"])
	})
}
