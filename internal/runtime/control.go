package runtime

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/aretw0/weave/internal/coerce"
	"github.com/aretw0/weave/pkg/domain"
)

// loopFrame collects the outputs of one loop node's body executions.
type loopFrame struct {
	node    *domain.Node
	input   map[string]any
	result  *domain.NodeExecutionResult
	results []any
	collect *[]any
}

// lookup resolves key from the node input, falling back to run variables.
// A nil input value counts as absent.
func (r *run) lookup(input map[string]any, key string) any {
	if v, ok := input[key]; ok && v != nil {
		return v
	}
	return r.state.Variables[key]
}

// condition records {conditionMet, ...input} and follows only the selected branch.
// The branch target receives the original input, not the node's output.
func (r *run) condition(ctx context.Context, node *domain.Node, t task, result *domain.NodeExecutionResult) error {
	field := node.ConfigString(domain.ConfigField)
	op := domain.Operator(node.ConfigString(domain.ConfigOperator))
	if op == "" {
		op = domain.OpEquals
	}
	met := Evaluate(op, r.lookup(t.input, field), node.ConfigValue(domain.ConfigValue))

	output := make(map[string]any, len(t.input)+1)
	output[domain.KeyConditionMet] = met
	maps.Copy(output, t.input)
	r.complete(ctx, node, result, output)
	appendResult(t.collect, output)

	branch := 0
	if !met {
		branch = 1
	}
	port, ok := node.OutputPort(branch)
	if !ok {
		r.logger.DebugContext(ctx, "condition branch has no port", "node_id", node.ID, "met", met)
		return nil
	}
	edge, ok := r.graph.EdgeFromPort(node.ID, port.ID)
	if !ok {
		return nil
	}
	r.push(task{kind: taskVisit, nodeID: edge.TargetNodeID, input: t.input})
	return nil
}

// Evaluate applies a condition operator to a resolved field value.
// Unknown operators test the truthiness of the field.
func Evaluate(op domain.Operator, field, value any) bool {
	switch op {
	case domain.OpEquals:
		return coerce.StrictEqual(field, value)
	case domain.OpNotEquals:
		return !coerce.StrictEqual(field, value)
	case domain.OpGreaterThan:
		return coerce.Number(field) > coerce.Number(value)
	case domain.OpLessThan:
		return coerce.Number(field) < coerce.Number(value)
	case domain.OpContains:
		return strings.Contains(coerce.String(field), coerce.String(value))
	default:
		return coerce.Truthy(field)
	}
}

// loop schedules every body node once per element, bypassing memoization, and a
// finishLoop task that runs after the last iteration.
func (r *run) loop(ctx context.Context, node *domain.Node, t task, result *domain.NodeExecutionResult) error {
	key := node.ConfigString(domain.ConfigIterableKey)
	items, ok := coerce.Slice(r.lookup(t.input, key))
	if !ok {
		return r.fail(ctx, node, result, domain.NotIterableError(key))
	}

	edges := r.graph.OutgoingEdges(node.ID)
	for _, edge := range edges {
		if edge.TargetNodeID == node.ID {
			return r.fail(ctx, node, result, fmt.Errorf("loop %s cannot target itself", node.ID))
		}
	}

	frame := &loopFrame{node: node, input: t.input, result: result, results: make([]any, 0, len(items)*len(edges)), collect: t.collect}
	r.logger.DebugContext(ctx, "loop started", "node_id", node.ID, "items", len(items), "bodies", len(edges))

	next := make([]task, 0, len(items)*len(edges)+1)
	for i, item := range items {
		vars := make(map[string]any, len(t.input)+3)
		maps.Copy(vars, t.input)
		vars[domain.KeyLoopItem] = item
		vars[domain.KeyLoopIndex] = i
		vars[domain.KeyLoopTotal] = len(items)
		for _, edge := range edges {
			next = append(next, task{
				kind:    taskVisit,
				nodeID:  edge.TargetNodeID,
				input:   vars,
				reset:   true,
				collect: &frame.results,
			})
		}
	}
	next = append(next, task{kind: taskFinishLoop, nodeID: node.ID, loop: frame})
	r.push(next...)
	return nil
}

func (r *run) finishLoop(ctx context.Context, frame *loopFrame) {
	output := make(map[string]any, len(frame.input)+1)
	output[domain.KeyResults] = frame.results
	maps.Copy(output, frame.input)
	r.complete(ctx, frame.node, frame.result, output)
	appendResult(frame.collect, output)
}
