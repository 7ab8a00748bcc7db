// Package runtime executes graphs.
//
// The Executor walks a graph depth-first from each trigger in insertion order using an
// explicit LIFO worklist. Nodes run at most once per run; loop bodies are the exception
// and are reset before every iteration. Condition nodes follow a single branch, loop
// nodes fan their body out per element and every other node type is dispatched through
// the handler registry and propagated to all of its outgoing edges.
//
// Cancellation is checked between nodes and inside delay nodes. A cancelled context, or
// an exceeded run timeout, ends the run with status cancelled.
package runtime
