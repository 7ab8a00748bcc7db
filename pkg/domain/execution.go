package domain

import (
	"maps"
	"time"
)

// NodeStatus is the lifecycle status of a node within one run.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeRunning   NodeStatus = "running"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
	NodeSkipped   NodeStatus = "skipped"
)

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// NodeExecutionResult records one node's outcome within a run.
// It is created the first time the executor visits the node.
type NodeExecutionResult struct {
	NodeID      string         `json:"nodeId"`
	Status      NodeStatus     `json:"status"`
	Output      map[string]any `json:"output"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
}

// Finish stamps completion time and duration.
func (r *NodeExecutionResult) Finish(status NodeStatus, at time.Time) {
	r.Status = status
	r.CompletedAt = &at
	r.Duration = at.Sub(r.StartedAt)
}

// ExecutionState is the snapshot of a single run of a graph.
type ExecutionState struct {
	GraphID     string                          `json:"graphId"`
	RunID       string                          `json:"runId"`
	Status      RunStatus                       `json:"status"`
	StartedAt   time.Time                       `json:"startedAt"`
	CompletedAt *time.Time                      `json:"completedAt,omitempty"`
	NodeResults map[string]*NodeExecutionResult `json:"nodeResults"`
	Variables   map[string]any                  `json:"variables"`
	Error       string                          `json:"error,omitempty"`
}

// NewExecutionState initializes a running state.
// Variables are the graph variables shallow-merged with the payload; payload keys win.
func NewExecutionState(graphID, runID string, variables, payload map[string]any, at time.Time) *ExecutionState {
	vars := make(map[string]any, len(variables)+len(payload))
	maps.Copy(vars, variables)
	maps.Copy(vars, payload)
	return &ExecutionState{
		GraphID:     graphID,
		RunID:       runID,
		Status:      RunRunning,
		StartedAt:   at,
		NodeResults: make(map[string]*NodeExecutionResult),
		Variables:   vars,
	}
}

// Result returns the result recorded for a node, if the node was reached.
func (s *ExecutionState) Result(nodeID string) (*NodeExecutionResult, bool) {
	r, ok := s.NodeResults[nodeID]
	return r, ok
}

// Finish moves the run to a terminal status.
func (s *ExecutionState) Finish(status RunStatus, errMsg string, at time.Time) {
	s.Status = status
	s.Error = errMsg
	s.CompletedAt = &at
}

// Clone returns a copy whose maps can be mutated independently.
// Node outputs and variable values are copied shallowly.
func (s *ExecutionState) Clone() *ExecutionState {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = maps.Clone(s.Variables)
	next.NodeResults = make(map[string]*NodeExecutionResult, len(s.NodeResults))
	for id, r := range s.NodeResults {
		cp := *r
		cp.Output = maps.Clone(r.Output)
		next.NodeResults[id] = &cp
	}
	return &next
}
