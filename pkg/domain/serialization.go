package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MarshalGraph serializes a graph for export.
// The node collection is written as a JSON object keyed by node ID, in insertion order.
func MarshalGraph(g *Graph) ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph: %w", err)
	}
	return data, nil
}

// UnmarshalGraph decodes a graph exactly as it was exported.
func UnmarshalGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = NewGraph("", "").Nodes
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	if g.Variables == nil {
		g.Variables = make(map[string]any)
	}
	return &g, nil
}

// ImportGraph decodes an exported graph and re-identifies it as a new graph owned by ownerID.
// Nodes, edges and variables are kept; ID, CreatedAt, UpdatedAt and CreatedBy are replaced.
func ImportGraph(data []byte, newID, ownerID string) (*Graph, error) {
	g, err := UnmarshalGraph(data)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	g.ID = newID
	g.CreatedAt = now
	g.UpdatedAt = now
	g.CreatedBy = ownerID
	return g, nil
}
