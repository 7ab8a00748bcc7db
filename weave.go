package weave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/internal/runtime"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/registry"
)

// ErrNoStore is returned by Run when the engine was built without a GraphStore.
var ErrNoStore = errors.New("no graph store configured")

// DefaultLockTTL bounds how long a run may hold its graph lock.
const DefaultLockTTL = 5 * time.Minute

// Engine is the high-level entry point for the weave library.
// It wraps the internal executor and, when a store is configured, runs graphs by ID
// and records their history.
type Engine struct {
	executor   *runtime.Executor
	registry   *registry.Registry
	store      ports.GraphStore
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	runTimeout time.Duration
	delay      time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry replaces the default handler registry (built-ins only).
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithStore sets the GraphStore used by Run.
func WithStore(store ports.GraphStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes runs of the same graph through a distributed lock.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Combine(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunTimeout cancels runs that take longer than d.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runTimeout = d
	}
}

// WithDefaultDelay sets the wait of delay nodes without config.delayMs.
func WithDefaultDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay = d
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{lockTTL: DefaultLockTTL, delay: runtime.DefaultDelay}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.registry == nil {
		eng.registry = registry.NewDefaultRegistry()
	}
	// Ensure logger is initialized so we don't pass nil to the runtime.
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	eng.executor = runtime.NewExecutor(eng.registry,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithRunTimeout(eng.runTimeout),
		runtime.WithDefaultDelay(eng.delay),
	)
	return eng
}

// Register binds a handler to a node type or handlerType name.
func (e *Engine) Register(name string, handler registry.Handler) {
	e.registry.Register(name, handler)
}

// Registry returns the handler registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Store returns the configured GraphStore, or nil.
func (e *Engine) Store() ports.GraphStore {
	return e.store
}

// Execute runs a graph once. It never returns nil; failures are reported on the state.
func (e *Engine) Execute(ctx context.Context, g *domain.Graph, payload map[string]any) *domain.ExecutionState {
	return e.executor.Execute(ctx, g, payload)
}

// Run loads a stored graph, executes it and records the run in the graph's history.
// Disabled graphs are refused with domain.ErrGraphDisabled. A failed run is not an error:
// inspect the returned state's Status.
func (e *Engine) Run(ctx context.Context, graphID string, payload map[string]any) (*domain.ExecutionState, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}

	g, err := e.store.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if !g.Enabled {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphDisabled, graphID)
	}

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, ports.GraphLockKey(graphID), e.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock graph %s: %w", graphID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("failed to release graph lock", "graph_id", graphID, "err", err)
			}
		}()
	}

	state := e.executor.Execute(ctx, g, payload)
	if err := e.store.RecordHistory(context.WithoutCancel(ctx), graphID, state); err != nil {
		e.logger.Error("failed to record history", "graph_id", graphID, "run_id", state.RunID, "err", err)
		return state, fmt.Errorf("failed to record history: %w", err)
	}
	return state, nil
}

var _ ports.GraphRunner = (*Engine)(nil)
