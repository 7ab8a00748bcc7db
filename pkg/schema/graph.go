package schema

import (
	"fmt"
	"slices"

	"github.com/aretw0/weave/pkg/domain"
)

var operatorType = Custom("operator", func(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	if !slices.Contains(domain.Operators, domain.Operator(s)) {
		return fmt.Errorf("unknown operator %q", s)
	}
	return nil
})

// NodeConfigSchemas describes the config entries read for each built-in node type.
// Custom node types have no schema beyond the common handlerType entry.
var NodeConfigSchemas = map[domain.NodeType]Schema{
	domain.NodeTypeCondition: {
		domain.ConfigField:    {Type: String(), Required: true},
		domain.ConfigOperator: {Type: operatorType},
		domain.ConfigValue:    {Type: Any()},
	},
	domain.NodeTypeLoop: {
		domain.ConfigIterableKey: {Type: String(), Required: true},
	},
	domain.NodeTypeDelay: {
		domain.ConfigDelayMs: {Type: Number()},
	},
	domain.NodeTypeTransform: {
		domain.ConfigExpression: {Type: String()},
	},
	domain.NodeTypeAction: {
		domain.ConfigTool: {Type: String()},
	},
}

var commonConfig = Schema{
	domain.ConfigHandlerType: {Type: String()},
}

// ValidateGraph checks the structural integrity of a graph.
// It reports every problem found as a single AggregateError.
func ValidateGraph(g *domain.Graph) error {
	var found problems
	if g.NodeCount() == 0 {
		found.add("nodes", "graph has no nodes", nil)
	}
	if len(g.Triggers()) == 0 {
		found.add("nodes", domain.ErrNoTriggers.Error(), nil)
	}

	if g.Nodes != nil {
		for pair := g.Nodes.Oldest(); pair != nil; pair = pair.Next() {
			validateNode(&found, pair.Key, pair.Value)
		}
	}

	for i, e := range g.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		src, ok := g.Node(e.SourceNodeID)
		if !ok {
			found.add(path+".sourceNodeId", domain.ErrNodeNotFound.Error(), e.SourceNodeID)
		} else if !hasPort(src.Outputs, e.SourcePortID) {
			found.add(path+".sourcePortId", domain.ErrPortNotFound.Error(), e.SourcePortID)
		}
		dst, ok := g.Node(e.TargetNodeID)
		if !ok {
			found.add(path+".targetNodeId", domain.ErrNodeNotFound.Error(), e.TargetNodeID)
		} else if !hasPort(dst.Inputs, e.TargetPortID) {
			found.add(path+".targetPortId", domain.ErrPortNotFound.Error(), e.TargetPortID)
		}
	}

	return found.err()
}

func validateNode(found *problems, key string, n *domain.Node) {
	path := fmt.Sprintf("nodes[%s]", key)
	if n == nil {
		found.add(path, "node is null", nil)
		return
	}
	if n.ID != key {
		found.add(path+".id", "does not match its key", n.ID)
	}
	if n.Type == "" {
		found.add(path+".type", "required", nil)
	}

	seen := make(map[string]bool)
	ports := append(slices.Clone(n.Inputs), n.Outputs...)
	for _, p := range ports {
		if seen[p.ID] {
			found.add(path+".ports", "duplicate port id", p.ID)
		}
		seen[p.ID] = true
		if _, err := ParseType(p.DataType); err != nil {
			found.add(path+".ports."+p.Name, err.Error(), nil)
		}
	}

	for _, s := range []Schema{commonConfig, NodeConfigSchemas[n.Type]} {
		found.merge(Validate(s, n.Config, path+".config."))
	}
}

func hasPort(ports []domain.Port, id string) bool {
	for _, p := range ports {
		if p.ID == id {
			return true
		}
	}
	return false
}
