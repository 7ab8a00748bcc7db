package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when an edge references a node that is not in the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when a node ID is already taken.
var ErrDuplicateNode = errors.New("duplicate node id")

// ErrPortNotFound is returned when a port index is out of range.
var ErrPortNotFound = errors.New("port not found")

// ErrNoTriggers is returned when a run starts on a graph without trigger nodes.
var ErrNoTriggers = errors.New("No trigger nodes found in graph")

// ErrNotIterable is returned when a loop node's resolved value is not an array.
var ErrNotIterable = errors.New("is not iterable")

// ErrGraphNotFound is returned when a graph ID cannot be found in the store.
var ErrGraphNotFound = errors.New("graph not found")

// ErrGraphDisabled is returned when running a graph whose Enabled flag is false.
var ErrGraphDisabled = errors.New("graph is disabled")

// ErrBuilderSealed is returned when a builder is used after Build.
var ErrBuilderSealed = errors.New("builder already built")

// NodeError wraps a failure raised while executing a node.
type NodeError struct {
	NodeID   string
	NodeType NodeType
	Cause    error
}

func (e *NodeError) Error() string {
	return e.Cause.Error()
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}

// NotIterableError builds the loop-data error for the given key.
func NotIterableError(key string) error {
	return fmt.Errorf("%s %w", key, ErrNotIterable)
}
