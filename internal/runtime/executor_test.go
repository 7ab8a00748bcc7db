package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/weave/internal/runtime"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/dsl"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConnect(t *testing.T, b *dsl.Builder, src string, srcPort int, dst string) {
	t.Helper()
	_, err := b.Connect(src, srcPort, dst, 0)
	require.NoError(t, err)
}

func TestExecute_TransformScenario(t *testing.T) {
	b := dsl.New("greeting")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	transform := b.AddNode(domain.NodeTypeTransform, "greet",
		dsl.WithConfig(map[string]any{"expression": "Hello {{name}}!"}))
	out := b.AddNode(domain.NodeTypeOutput, "done")
	mustConnect(t, b, trigger, 0, transform)
	mustConnect(t, b, transform, 0, out)

	exec := runtime.NewExecutor(registry.NewDefaultRegistry())
	state := exec.Execute(context.Background(), b.Build(), map[string]any{"name": "World"})

	require.Equal(t, domain.RunCompleted, state.Status, state.Error)
	assert.Empty(t, state.Error)
	require.NotNil(t, state.CompletedAt)

	res, ok := state.Result(transform)
	require.True(t, ok)
	assert.Equal(t, domain.NodeCompleted, res.Status)
	assert.Equal(t, "Hello World!", res.Output["transformed"])
	require.NotNil(t, res.CompletedAt)
	assert.Equal(t, res.CompletedAt.Sub(res.StartedAt), res.Duration)

	final, ok := state.Result(out)
	require.True(t, ok)
	assert.Equal(t, "Hello World!", final.Output["transformed"])
}

func conditionGraph(t *testing.T, config map[string]any) (*domain.Graph, string, string, string) {
	t.Helper()
	b := dsl.New("router")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	cond := b.AddNode(domain.NodeTypeCondition, "check", dsl.WithConfig(config), dsl.WithBranches())
	yes := b.AddNode(domain.NodeTypeOutput, "yes")
	no := b.AddNode(domain.NodeTypeOutput, "no")
	mustConnect(t, b, trigger, 0, cond)
	mustConnect(t, b, cond, 0, yes)
	mustConnect(t, b, cond, 1, no)
	return b.Build(), cond, yes, no
}

func TestExecute_ConditionFollowsOneBranch(t *testing.T) {
	g, cond, yes, no := conditionGraph(t, map[string]any{"field": "status", "operator": "equals", "value": "active"})
	exec := runtime.NewExecutor(registry.NewDefaultRegistry())

	state := exec.Execute(context.Background(), g, map[string]any{"status": "active"})
	require.Equal(t, domain.RunCompleted, state.Status)

	res, ok := state.Result(cond)
	require.True(t, ok)
	assert.Equal(t, true, res.Output["conditionMet"])
	assert.Equal(t, "active", res.Output["status"])

	yesRes, ok := state.Result(yes)
	require.True(t, ok)
	assert.Equal(t, domain.NodeCompleted, yesRes.Status)
	assert.NotContains(t, yesRes.Output, "conditionMet", "branch receives the original input")
	_, ok = state.Result(no)
	assert.False(t, ok, "false branch must have no result at all")

	state = exec.Execute(context.Background(), g, map[string]any{"status": "inactive"})
	require.Equal(t, domain.RunCompleted, state.Status)
	_, ok = state.Result(yes)
	assert.False(t, ok)
	_, ok = state.Result(no)
	assert.True(t, ok)
}

func TestExecute_ConditionEqualsIsStrict(t *testing.T) {
	g, cond, yes, no := conditionGraph(t, map[string]any{"field": "count", "operator": "equals", "value": 10})
	exec := runtime.NewExecutor(registry.NewDefaultRegistry())

	state := exec.Execute(context.Background(), g, map[string]any{"count": 10})
	res, _ := state.Result(cond)
	assert.Equal(t, true, res.Output["conditionMet"])
	_, ok := state.Result(yes)
	assert.True(t, ok)

	state = exec.Execute(context.Background(), g, map[string]any{"count": "10"})
	res, _ = state.Result(cond)
	assert.Equal(t, false, res.Output["conditionMet"])
	_, ok = state.Result(no)
	assert.True(t, ok)
}

func TestExecute_ConditionWithSingleOutput(t *testing.T) {
	b := dsl.New("single")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	cond := b.AddNode(domain.NodeTypeCondition, "check",
		dsl.WithConfig(map[string]any{"field": "ok", "operator": "truthy"}))
	out := b.AddNode(domain.NodeTypeOutput, "next")
	mustConnect(t, b, trigger, 0, cond)
	mustConnect(t, b, cond, 0, out)
	g := b.Build()
	exec := runtime.NewExecutor(registry.NewDefaultRegistry())

	state := exec.Execute(context.Background(), g, map[string]any{"ok": false})
	require.Equal(t, domain.RunCompleted, state.Status)
	_, ok := state.Result(out)
	assert.False(t, ok, "no false port means the path ends")

	state = exec.Execute(context.Background(), g, map[string]any{"ok": "yes"})
	_, ok = state.Result(out)
	assert.True(t, ok)
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name  string
		op    domain.Operator
		field any
		value any
		want  bool
	}{
		{"equals numbers across widths", domain.OpEquals, int64(3), 3.0, true},
		{"equals string", domain.OpEquals, "a", "a", true},
		{"not equals mixed types", domain.OpNotEquals, 10, "10", true},
		{"not equals same", domain.OpNotEquals, "x", "x", false},
		{"greater than coerces", domain.OpGreaterThan, "12", 5, true},
		{"greater than NaN", domain.OpGreaterThan, "abc", 5, false},
		{"less than", domain.OpLessThan, 1, "2", true},
		{"contains", domain.OpContains, "hello world", "lo w", true},
		{"contains number", domain.OpContains, 12345, 34, true},
		{"contains missing", domain.OpContains, "abc", "z", false},
		{"truthy empty string", domain.OpTruthy, "", nil, false},
		{"truthy zero", domain.OpTruthy, 0, nil, false},
		{"truthy empty slice", domain.OpTruthy, []any{}, nil, true},
		{"unknown operator is truthy", domain.Operator("matches"), "x", nil, true},
		{"unknown operator nil", domain.Operator("matches"), nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, runtime.Evaluate(tc.op, tc.field, tc.value))
		})
	}
}

func TestExecute_ConditionFallsBackToVariables(t *testing.T) {
	b := dsl.New("vars")
	b.SetVariable("tier", "gold")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	cond := b.AddNode(domain.NodeTypeCondition, "check",
		dsl.WithConfig(map[string]any{"field": "tier", "value": "gold"}), dsl.WithBranches())
	mustConnect(t, b, trigger, 0, cond)

	reg := registry.NewDefaultRegistry()
	reg.Register(string(domain.NodeTypeTrigger), func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		return map[string]any{}, nil
	})
	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(), nil)

	res, ok := state.Result(cond)
	require.True(t, ok)
	assert.Equal(t, true, res.Output["conditionMet"], "absent operator means equals")
}

func TestExecute_NodesRunOncePerRun(t *testing.T) {
	b := dsl.New("diamond")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	left := b.AddNode("tag", "left", dsl.WithConfig(map[string]any{"tag": "left"}))
	right := b.AddNode("tag", "right", dsl.WithConfig(map[string]any{"tag": "right"}))
	join := b.AddNode("count", "join")
	mustConnect(t, b, trigger, 0, left)
	mustConnect(t, b, trigger, 0, right)
	mustConnect(t, b, left, 0, join)
	mustConnect(t, b, right, 0, join)

	reg := registry.NewDefaultRegistry()
	reg.Register("tag", func(_ context.Context, n *domain.Node, _ map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		return map[string]any{"from": n.ConfigValue("tag")}, nil
	})
	calls := 0
	reg.Register("count", func(_ context.Context, _ *domain.Node, in map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		calls++
		return in, nil
	})

	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(), nil)
	require.Equal(t, domain.RunCompleted, state.Status)
	assert.Equal(t, 1, calls)

	res, ok := state.Result(join)
	require.True(t, ok)
	assert.Equal(t, "left", res.Output["from"], "output reflects the first arrival")
	_, ok = state.Result(right)
	assert.True(t, ok)
}

func TestExecute_HandlerInputMergesVariables(t *testing.T) {
	b := dsl.New("merge")
	b.SetVariable("env", "prod")
	b.SetVariable("shadow", "variable")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	inspect := b.AddNode("inspect", "inspect")
	mustConnect(t, b, trigger, 0, inspect)

	var seen map[string]any
	reg := registry.NewDefaultRegistry()
	reg.Register("inspect", func(_ context.Context, _ *domain.Node, in map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		seen = in
		return nil, nil
	})
	reg.Register(string(domain.NodeTypeTrigger), func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		return map[string]any{"shadow": "input", "own": 1}, nil
	})

	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(), map[string]any{"user": "ana"})
	require.Equal(t, domain.RunCompleted, state.Status)
	assert.Equal(t, map[string]any{"env": "prod", "shadow": "variable", "own": 1, "user": "ana"}, seen)

	res, _ := state.Result(inspect)
	assert.Equal(t, map[string]any{}, res.Output, "nil handler output is recorded as empty")
}

func TestExecute_UnknownTypeIsIdentity(t *testing.T) {
	b := dsl.New("identity")
	b.SetVariable("hidden", true)
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	custom := b.AddNode(domain.NodeTypeSubgraph, "nested")
	mustConnect(t, b, trigger, 0, custom)

	reg := registry.NewDefaultRegistry()
	reg.Register(string(domain.NodeTypeTrigger), func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		return map[string]any{"a": 1}, nil
	})
	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(), nil)

	res, ok := state.Result(custom)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, res.Output)
}

func TestExecute_TriggersRunInInsertionOrder(t *testing.T) {
	b := dsl.New("triggers")
	t1 := b.AddNode(domain.NodeTypeTrigger, "t1")
	a := b.AddNode(domain.NodeTypeOutput, "a")
	bNode := b.AddNode(domain.NodeTypeOutput, "b")
	t2 := b.AddNode(domain.NodeTypeTrigger, "t2")
	c := b.AddNode(domain.NodeTypeOutput, "c")
	mustConnect(t, b, t1, 0, a)
	mustConnect(t, b, a, 0, bNode)
	mustConnect(t, b, t2, 0, c)

	var order []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			order = append(order, e.NodeID)
		},
	}
	state := runtime.NewExecutor(registry.NewDefaultRegistry(), runtime.WithLifecycleHooks(hooks)).
		Execute(context.Background(), b.Build(), nil)

	require.Equal(t, domain.RunCompleted, state.Status)
	assert.Equal(t, []string{t1, a, bNode, t2, c}, order, "first trigger's subtree finishes before the second trigger")
}

func TestExecute_FailureShortCircuits(t *testing.T) {
	b := dsl.New("failing")
	t1 := b.AddNode(domain.NodeTypeTrigger, "t1")
	boom := b.AddNode("boom", "boom")
	after := b.AddNode(domain.NodeTypeOutput, "after")
	t2 := b.AddNode(domain.NodeTypeTrigger, "t2")
	mustConnect(t, b, t1, 0, boom)
	mustConnect(t, b, boom, 0, after)

	reg := registry.NewDefaultRegistry()
	reg.Register("boom", func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		return nil, errors.New("tool exploded")
	})

	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(), nil)
	assert.Equal(t, domain.RunFailed, state.Status)
	assert.Equal(t, "tool exploded", state.Error)

	res, ok := state.Result(boom)
	require.True(t, ok)
	assert.Equal(t, domain.NodeFailed, res.Status)
	assert.Equal(t, "tool exploded", res.Error)
	require.NotNil(t, res.CompletedAt)

	trig, _ := state.Result(t1)
	assert.Equal(t, domain.NodeCompleted, trig.Status)
	_, ok = state.Result(after)
	assert.False(t, ok)
	_, ok = state.Result(t2)
	assert.False(t, ok, "later triggers never start")
}

func TestExecute_HandlerPanicFailsRun(t *testing.T) {
	b := dsl.New("panic")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	bad := b.AddNode("bad", "bad")
	mustConnect(t, b, trigger, 0, bad)

	reg := registry.NewDefaultRegistry()
	reg.Register("bad", func(context.Context, *domain.Node, map[string]any, *domain.ExecutionState) (map[string]any, error) {
		panic("nil map")
	})
	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(), nil)

	assert.Equal(t, domain.RunFailed, state.Status)
	assert.Contains(t, state.Error, "nil map")
}

func TestExecute_NoTriggers(t *testing.T) {
	b := dsl.New("empty")
	b.AddNode(domain.NodeTypeOutput, "lonely")

	state := runtime.NewExecutor(nil).Execute(context.Background(), b.Build(), nil)
	assert.Equal(t, domain.RunFailed, state.Status)
	assert.Contains(t, state.Error, "No trigger nodes found")
	assert.Empty(t, state.NodeResults)
}

func loopGraph(t *testing.T) (*dsl.Builder, string, string) {
	t.Helper()
	b := dsl.New("loop")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	loop := b.AddNode(domain.NodeTypeLoop, "each", dsl.WithConfig(map[string]any{"iterableKey": "items"}))
	body := b.AddNode("record", "body")
	mustConnect(t, b, trigger, 0, loop)
	mustConnect(t, b, loop, 0, body)
	return b, loop, body
}

func TestExecute_LoopRunsBodyPerItem(t *testing.T) {
	b, loop, body := loopGraph(t)
	after := b.AddNode("count", "after")
	mustConnect(t, b, body, 0, after)

	type call struct {
		item  any
		index any
		total any
	}
	var calls []call
	afterCalls := 0
	reg := registry.NewDefaultRegistry()
	reg.Register("record", func(_ context.Context, _ *domain.Node, in map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		calls = append(calls, call{in["loopItem"], in["loopIndex"], in["loopTotal"]})
		return map[string]any{"seen": in["loopItem"]}, nil
	})
	reg.Register("count", func(_ context.Context, _ *domain.Node, in map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		afterCalls++
		return in, nil
	})

	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(),
		map[string]any{"items": []any{"a", "b", "c"}})
	require.Equal(t, domain.RunCompleted, state.Status, state.Error)

	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.Equal(t, []any{"a", "b", "c"}[i], c.item)
		assert.Equal(t, i, c.index)
		assert.Equal(t, 3, c.total)
	}
	assert.Equal(t, 1, afterCalls, "nodes past the body stay memoized")

	res, ok := state.Result(loop)
	require.True(t, ok)
	assert.Equal(t, domain.NodeCompleted, res.Status)
	results, ok := res.Output["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	assert.Equal(t, map[string]any{"seen": "c"}, results[2])
	assert.Equal(t, []any{"a", "b", "c"}, res.Output["items"])

	bodyRes, _ := state.Result(body)
	assert.Equal(t, "c", bodyRes.Output["seen"], "body result holds the last iteration")
}

func TestExecute_LoopOverEmptyArray(t *testing.T) {
	b, loop, body := loopGraph(t)
	state := runtime.NewExecutor(registry.NewDefaultRegistry()).
		Execute(context.Background(), b.Build(), map[string]any{"items": []string{}})

	require.Equal(t, domain.RunCompleted, state.Status)
	res, _ := state.Result(loop)
	assert.Equal(t, []any{}, res.Output["results"])
	_, ok := state.Result(body)
	assert.False(t, ok)
}

func TestExecute_LoopNotIterable(t *testing.T) {
	b, loop, _ := loopGraph(t)
	state := runtime.NewExecutor(registry.NewDefaultRegistry()).
		Execute(context.Background(), b.Build(), map[string]any{"items": "abc"})

	assert.Equal(t, domain.RunFailed, state.Status)
	assert.Equal(t, "items is not iterable", state.Error)
	res, _ := state.Result(loop)
	assert.Equal(t, domain.NodeFailed, res.Status)
}

func TestExecute_LoopBodyFailureFailsLoop(t *testing.T) {
	b, loop, body := loopGraph(t)
	reg := registry.NewDefaultRegistry()
	reg.Register("record", func(_ context.Context, _ *domain.Node, in map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		if in["loopIndex"] == 1 {
			return nil, errors.New("bad item")
		}
		return in, nil
	})

	state := runtime.NewExecutor(reg).Execute(context.Background(), b.Build(),
		map[string]any{"items": []any{1, 2, 3}})
	assert.Equal(t, domain.RunFailed, state.Status)
	assert.Equal(t, "bad item", state.Error)

	loopRes, _ := state.Result(loop)
	assert.Equal(t, domain.NodeFailed, loopRes.Status)
	bodyRes, _ := state.Result(body)
	assert.Equal(t, domain.NodeFailed, bodyRes.Status)
}

func TestExecute_MutuallyNestedLoopsFail(t *testing.T) {
	b := dsl.New("ping-pong")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	outer := b.AddNode(domain.NodeTypeLoop, "outer", dsl.WithConfig(map[string]any{"iterableKey": "items"}))
	inner := b.AddNode(domain.NodeTypeLoop, "inner", dsl.WithConfig(map[string]any{"iterableKey": "items"}))
	mustConnect(t, b, trigger, 0, outer)
	mustConnect(t, b, outer, 0, inner)
	mustConnect(t, b, inner, 0, outer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state := runtime.NewExecutor(registry.NewDefaultRegistry()).Execute(ctx, b.Build(),
		map[string]any{"items": []any{1, 2}})

	require.Equal(t, domain.RunFailed, state.Status, state.Error)
	assert.Contains(t, state.Error, "re-entered while running")
	for _, id := range []string{outer, inner} {
		res, ok := state.Result(id)
		require.True(t, ok, id)
		assert.Equal(t, domain.NodeFailed, res.Status, id)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	b := dsl.New("cancel")
	b.AddNode(domain.NodeTypeTrigger, "start")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := runtime.NewExecutor(nil).Execute(ctx, b.Build(), nil)
	assert.Equal(t, domain.RunCancelled, state.Status)
	assert.Empty(t, state.NodeResults)
}

func TestExecute_RunTimeoutCancelsDelay(t *testing.T) {
	b := dsl.New("slow")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	wait := b.AddNode(domain.NodeTypeDelay, "wait", dsl.WithConfig(map[string]any{"delayMs": 5000}))
	mustConnect(t, b, trigger, 0, wait)

	exec := runtime.NewExecutor(nil, runtime.WithRunTimeout(20*time.Millisecond))
	start := time.Now()
	state := exec.Execute(context.Background(), b.Build(), nil)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, domain.RunCancelled, state.Status)
	res, _ := state.Result(wait)
	assert.Equal(t, domain.NodeFailed, res.Status)
}

func TestExecute_Delay(t *testing.T) {
	b := dsl.New("delays")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	short := b.AddNode(domain.NodeTypeDelay, "short", dsl.WithConfig(map[string]any{"delayMs": "10"}))
	fallback := b.AddNode(domain.NodeTypeDelay, "default")
	mustConnect(t, b, trigger, 0, short)
	mustConnect(t, b, short, 0, fallback)

	exec := runtime.NewExecutor(nil, runtime.WithDefaultDelay(time.Millisecond))
	state := exec.Execute(context.Background(), b.Build(), map[string]any{"k": "v"})

	require.Equal(t, domain.RunCompleted, state.Status)
	res, _ := state.Result(short)
	assert.GreaterOrEqual(t, res.Duration, 10*time.Millisecond)
	out, _ := state.Result(fallback)
	assert.Equal(t, "v", out.Output["k"])
}

func TestExecute_HooksAndRunIDs(t *testing.T) {
	b := dsl.New("hooks")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	out := b.AddNode(domain.NodeTypeOutput, "end")
	mustConnect(t, b, trigger, 0, out)

	var (
		mu     sync.Mutex
		events []domain.EventType
		finish *domain.RunEvent
	)
	record := func(typ domain.EventType) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, typ)
	}
	hooks := domain.LifecycleHooks{
		OnRunStart:  func(_ context.Context, e *domain.RunEvent) { record(e.Type) },
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) { record(e.Type); finish = e },
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { record(e.Type) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { record(e.Type) },
	}
	exec := runtime.NewExecutor(nil,
		runtime.WithLifecycleHooks(hooks),
		runtime.WithRunIDGenerator(func() string { return "run-1" }))

	state := exec.Execute(context.Background(), b.Build(), nil)
	assert.Equal(t, "run-1", state.RunID)
	assert.Equal(t, []domain.EventType{
		domain.EventRunStart,
		domain.EventNodeEnter, domain.EventNodeLeave,
		domain.EventNodeEnter, domain.EventNodeLeave,
		domain.EventRunFinish,
	}, events)
	require.NotNil(t, finish)
	assert.Equal(t, domain.RunCompleted, finish.Status)
	assert.Equal(t, "run-1", finish.RunID)
}

func TestExecute_ConcurrentRunsAreIndependent(t *testing.T) {
	b := dsl.New("shared")
	trigger := b.AddNode(domain.NodeTypeTrigger, "start")
	transform := b.AddNode(domain.NodeTypeTransform, "greet",
		dsl.WithConfig(map[string]any{"expression": "{{n}}"}))
	mustConnect(t, b, trigger, 0, transform)
	g := b.Build()
	exec := runtime.NewExecutor(registry.NewDefaultRegistry())

	var wg sync.WaitGroup
	states := make([]*domain.ExecutionState, 8)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = exec.Execute(context.Background(), g, map[string]any{"n": i})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, s := range states {
		require.Equal(t, domain.RunCompleted, s.Status)
		res, _ := s.Result(transform)
		assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7"}[i], res.Output["transformed"])
		assert.False(t, seen[s.RunID])
		seen[s.RunID] = true
	}
}
