package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventRunFinish EventType = "run_finish"
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	GraphID   string    `json:"graph_id"`
	RunID     string    `json:"run_id"`
}

// RunEvent represents the start or the end of a run.
type RunEvent struct {
	EventBase
	Status   RunStatus     `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	NodeType NodeType      `json:"node_type"`
	Status   NodeStatus    `json:"status,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnRunFinish func(context.Context, *RunEvent)
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
}

// Combine returns hooks that call h first and then other.
func (h LifecycleHooks) Combine(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:  chain(h.OnRunStart, other.OnRunStart),
		OnRunFinish: chain(h.OnRunFinish, other.OnRunFinish),
		OnNodeEnter: chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave: chain(h.OnNodeLeave, other.OnNodeLeave),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
