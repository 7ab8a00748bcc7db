package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
)

// Handler computes a node's output from its merged input.
// The input already contains the run variables; run is the live state of the current run
// and must only be read, except for run.Variables which handlers may extend.
type Handler func(ctx context.Context, node *domain.Node, input map[string]any, run *domain.ExecutionState) (map[string]any, error)

// Registry maps node types (or config-declared handler names) to handlers.
// It is safe for concurrent use; registration is expected to happen at startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// NewDefaultRegistry creates a registry pre-loaded with the built-in handlers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds a handler to the registry.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}

// Resolve finds the handler for a node: first by node type, then by config.handlerType.
func (r *Registry) Resolve(node *domain.Node) (Handler, bool) {
	if fn, ok := r.Lookup(string(node.Type)); ok {
		return fn, true
	}
	if name := node.ConfigString(domain.ConfigHandlerType); name != "" {
		return r.Lookup(name)
	}
	return nil, false
}

// Execute looks up a handler by name and runs it.
// Returns an error if the handler is not found.
func (r *Registry) Execute(ctx context.Context, name string, node *domain.Node, input map[string]any, run *domain.ExecutionState) (map[string]any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("handler not found: %s", name)
	}
	return fn(ctx, node, input, run)
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
