package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/weave/internal/coerce"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/google/uuid"
)

// Executor walks a graph and produces one ExecutionState per run.
// A single Executor may run many graphs concurrently; each run owns its state.
type Executor struct {
	registry     *registry.Registry
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	now          func() time.Time
	newRunID     func() string
	runTimeout   time.Duration
	defaultDelay time.Duration
}

// NewExecutor creates an executor that dispatches through the given registry.
func NewExecutor(reg *registry.Registry, opts ...Option) *Executor {
	if reg == nil {
		reg = registry.NewDefaultRegistry()
	}
	e := &Executor{
		registry:     reg,
		logger:       logging.NewNop(),
		now:          time.Now,
		newRunID:     uuid.NewString,
		defaultDelay: DefaultDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the handler registry used for generic dispatch.
func (e *Executor) Registry() *registry.Registry {
	return e.registry
}

// Execute runs the graph once against the trigger payload.
// It never returns nil: setup errors, handler failures and cancellation are all
// reported through the returned state's Status and Error.
func (e *Executor) Execute(ctx context.Context, g *domain.Graph, payload map[string]any) *domain.ExecutionState {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	state := domain.NewExecutionState(g.ID, e.newRunID(), g.Variables, payload, e.now())
	logger := e.logger.With("graph_id", g.ID, "run_id", state.RunID)
	r := &run{exec: e, graph: g, state: state, logger: logger}

	logger.InfoContext(ctx, "run started", "triggers", len(g.Triggers()))
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{EventBase: r.event(domain.EventRunStart), Status: state.Status})
	}

	err := r.start(ctx)
	switch {
	case err == nil:
		state.Finish(domain.RunCompleted, "", e.now())
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		state.Finish(domain.RunCancelled, err.Error(), e.now())
	default:
		state.Finish(domain.RunFailed, err.Error(), e.now())
	}

	duration := state.CompletedAt.Sub(state.StartedAt)
	if err != nil {
		logger.WarnContext(ctx, "run finished", "status", state.Status, "duration", duration, "err", err)
	} else {
		logger.InfoContext(ctx, "run finished", "status", state.Status, "duration", duration)
	}
	if e.hooks.OnRunFinish != nil {
		e.hooks.OnRunFinish(ctx, &domain.RunEvent{
			EventBase: r.event(domain.EventRunFinish),
			Status:    state.Status,
			Error:     state.Error,
			Duration:  duration,
		})
	}
	return state
}

type taskKind int

const (
	taskVisit taskKind = iota
	taskFinishLoop
)

// task is one unit on the worklist.
// A visit executes a node; a finishLoop closes a loop once all its iterations are done.
type task struct {
	kind    taskKind
	nodeID  string
	input   map[string]any
	reset   bool
	collect *[]any
	loop    *loopFrame
}

// run holds the mutable state of a single execution.
// The worklist is LIFO so each pushed subtree completes before its next sibling starts.
type run struct {
	exec   *Executor
	graph  *domain.Graph
	state  *domain.ExecutionState
	logger *slog.Logger
	stack  []task
}

func (r *run) start(ctx context.Context) error {
	triggers := r.graph.Triggers()
	if len(triggers) == 0 {
		return domain.ErrNoTriggers
	}
	for _, trigger := range triggers {
		r.push(task{kind: taskVisit, nodeID: trigger.ID, input: map[string]any{}})
		if err := r.drain(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) push(tasks ...task) {
	for i := len(tasks) - 1; i >= 0; i-- {
		r.stack = append(r.stack, tasks[i])
	}
}

func (r *run) pop() task {
	t := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return t
}

func (r *run) drain(ctx context.Context) error {
	for len(r.stack) > 0 {
		if err := ctx.Err(); err != nil {
			r.abort(err)
			return err
		}
		t := r.pop()
		var err error
		switch t.kind {
		case taskVisit:
			err = r.visit(ctx, t)
		case taskFinishLoop:
			r.finishLoop(ctx, t.loop)
		}
		if err != nil {
			r.abort(err)
			return err
		}
	}
	return nil
}

// abort unwinds the worklist. Loops still waiting for iterations fail with the same cause.
func (r *run) abort(cause error) {
	for len(r.stack) > 0 {
		t := r.pop()
		if t.kind == taskFinishLoop {
			r.failResult(t.loop.result, cause)
		}
	}
}

func (r *run) visit(ctx context.Context, t task) error {
	node, ok := r.graph.Node(t.nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, t.nodeID)
	}

	if t.reset {
		if prev, ok := r.state.NodeResults[node.ID]; ok && prev.Status == domain.NodeRunning {
			// A loop reached again through its own iterations is never reset.
			return r.fail(ctx, node, prev, fmt.Errorf("loop %s re-entered while running", node.ID))
		}
		delete(r.state.NodeResults, node.ID)
	}
	if cached, ok := r.state.NodeResults[node.ID]; ok {
		r.logger.DebugContext(ctx, "node memoized", "node_id", node.ID)
		appendResult(t.collect, cached.Output)
		return nil
	}

	result := &domain.NodeExecutionResult{
		NodeID:    node.ID,
		Status:    domain.NodeRunning,
		Output:    map[string]any{},
		StartedAt: r.exec.now(),
	}
	r.state.NodeResults[node.ID] = result
	r.logger.DebugContext(ctx, "node enter", "node_id", node.ID, "type", node.Type)
	if r.exec.hooks.OnNodeEnter != nil {
		r.exec.hooks.OnNodeEnter(ctx, r.nodeEvent(domain.EventNodeEnter, node, result))
	}

	switch node.Type {
	case domain.NodeTypeCondition:
		return r.condition(ctx, node, t, result)
	case domain.NodeTypeLoop:
		return r.loop(ctx, node, t, result)
	case domain.NodeTypeDelay:
		if err := sleep(ctx, r.delayFor(node)); err != nil {
			return r.fail(ctx, node, result, err)
		}
	}
	return r.dispatch(ctx, node, t, result)
}

// dispatch runs the node's handler and schedules every outgoing edge with its output.
func (r *run) dispatch(ctx context.Context, node *domain.Node, t task, result *domain.NodeExecutionResult) error {
	output := t.input
	if handler, ok := r.exec.registry.Resolve(node); ok {
		merged := make(map[string]any, len(t.input)+len(r.state.Variables))
		maps.Copy(merged, t.input)
		maps.Copy(merged, r.state.Variables)

		var err error
		output, err = callHandler(ctx, handler, node, merged, r.state)
		if err != nil {
			return r.fail(ctx, node, result, err)
		}
	}
	if output == nil {
		output = map[string]any{}
	}

	r.complete(ctx, node, result, output)
	appendResult(t.collect, output)

	edges := r.graph.OutgoingEdges(node.ID)
	next := make([]task, len(edges))
	for i, edge := range edges {
		next[i] = task{kind: taskVisit, nodeID: edge.TargetNodeID, input: output}
	}
	r.push(next...)
	return nil
}

func callHandler(ctx context.Context, h registry.Handler, node *domain.Node, input map[string]any, state *domain.ExecutionState) (out map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, node, input, state)
}

func (r *run) complete(ctx context.Context, node *domain.Node, result *domain.NodeExecutionResult, output map[string]any) {
	result.Output = output
	result.Finish(domain.NodeCompleted, r.exec.now())
	r.logger.DebugContext(ctx, "node leave", "node_id", node.ID, "status", result.Status, "duration", result.Duration)
	if r.exec.hooks.OnNodeLeave != nil {
		r.exec.hooks.OnNodeLeave(ctx, r.nodeEvent(domain.EventNodeLeave, node, result))
	}
}

func (r *run) fail(ctx context.Context, node *domain.Node, result *domain.NodeExecutionResult, cause error) error {
	r.failResult(result, cause)
	r.logger.WarnContext(ctx, "node failed", "node_id", node.ID, "type", node.Type, "err", cause)
	if r.exec.hooks.OnNodeLeave != nil {
		r.exec.hooks.OnNodeLeave(ctx, r.nodeEvent(domain.EventNodeLeave, node, result))
	}
	return &domain.NodeError{NodeID: node.ID, NodeType: node.Type, Cause: cause}
}

func (r *run) failResult(result *domain.NodeExecutionResult, cause error) {
	if result.Status != domain.NodeRunning {
		return
	}
	result.Error = cause.Error()
	result.Finish(domain.NodeFailed, r.exec.now())
}

func (r *run) delayFor(node *domain.Node) time.Duration {
	raw := node.ConfigValue(domain.ConfigDelayMs)
	if raw == nil {
		return r.exec.defaultDelay
	}
	if ms, ok := coerce.Int64(raw); ok {
		return time.Duration(ms) * time.Millisecond
	}
	return r.exec.defaultDelay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func appendResult(collect *[]any, output map[string]any) {
	if collect != nil {
		*collect = append(*collect, output)
	}
}

func (r *run) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: r.exec.now(),
		Type:      t,
		GraphID:   r.state.GraphID,
		RunID:     r.state.RunID,
	}
}

func (r *run) nodeEvent(t domain.EventType, node *domain.Node, result *domain.NodeExecutionResult) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase: r.event(t),
		NodeID:    node.ID,
		NodeType:  node.Type,
		Status:    result.Status,
		Error:     result.Error,
		Duration:  result.Duration,
	}
}
