package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/weave/pkg/domain"
)

// DefaultDelay is how long a delay node waits when config.delayMs is absent.
const DefaultDelay = time.Second

// Option configures the Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithClock replaces time.Now, mostly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithRunIDGenerator replaces the UUID generator for run IDs.
func WithRunIDGenerator(gen func() string) Option {
	return func(e *Executor) {
		e.newRunID = gen
	}
}

// WithRunTimeout bounds every run. A run that exceeds it ends as cancelled.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.runTimeout = d
	}
}

// WithDefaultDelay overrides DefaultDelay.
func WithDefaultDelay(d time.Duration) Option {
	return func(e *Executor) {
		e.defaultDelay = d
	}
}
