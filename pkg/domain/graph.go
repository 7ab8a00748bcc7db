package domain

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// NodeMap is the insertion-ordered node collection of a graph.
// Iteration order is the order nodes were added, which is also the trigger order.
type NodeMap = orderedmap.OrderedMap[string, *Node]

// Edge is a directed connection from an output port to an input port.
// Edges are unconditional; which ones count for traversal depends on the source node type.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	SourceNodeID string `json:"sourceNodeId" yaml:"sourceNodeId"`
	SourcePortID string `json:"sourcePortId" yaml:"sourcePortId"`
	TargetNodeID string `json:"targetNodeId" yaml:"targetNodeId"`
	TargetPortID string `json:"targetPortId" yaml:"targetPortId"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Graph is an automation: nodes, the edges between them and shared variables.
type Graph struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       *NodeMap       `json:"nodes" yaml:"nodes"`
	Edges       []Edge         `json:"edges" yaml:"edges"`
	Variables   map[string]any `json:"variables" yaml:"variables"`
	CreatedAt   time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" yaml:"updatedAt"`
	CreatedBy   string         `json:"createdBy" yaml:"createdBy"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
}

// NewGraph creates an empty, enabled graph.
func NewGraph(id, name string) *Graph {
	now := time.Now().UTC()
	return &Graph{
		ID:        id,
		Name:      name,
		Nodes:     orderedmap.New[string, *Node](),
		Edges:     []Edge{},
		Variables: make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
		Enabled:   true,
	}
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	if g.Nodes == nil {
		return nil, false
	}
	return g.Nodes.Get(id)
}

// PutNode inserts or replaces a node. New IDs are appended to the iteration order.
func (g *Graph) PutNode(n *Node) {
	if g.Nodes == nil {
		g.Nodes = orderedmap.New[string, *Node]()
	}
	g.Nodes.Set(n.ID, n)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	if g.Nodes == nil {
		return 0
	}
	return g.Nodes.Len()
}

// NodeList returns the nodes in insertion order.
func (g *Graph) NodeList() []*Node {
	out := make([]*Node, 0, g.NodeCount())
	if g.Nodes == nil {
		return out
	}
	for pair := g.Nodes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Triggers returns the trigger nodes in insertion order.
func (g *Graph) Triggers() []*Node {
	var out []*Node
	for _, n := range g.NodeList() {
		if n.Type == NodeTypeTrigger {
			out = append(out, n)
		}
	}
	return out
}

// OutgoingEdges returns every edge whose source is the given node, in edge order.
// The source port is not considered.
func (g *Graph) OutgoingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.SourceNodeID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgeFromPort returns the first edge leaving the given output port of a node.
func (g *Graph) EdgeFromPort(nodeID, portID string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.SourceNodeID == nodeID && e.SourcePortID == portID {
			return e, true
		}
	}
	return Edge{}, false
}
