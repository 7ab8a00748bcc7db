package schema

import (
	"github.com/aretw0/weave/pkg/domain"
)

// Unreachable returns, in graph order, the nodes no trigger can reach by following edges.
// Such nodes are never executed. They are reported as warnings rather than errors.
func Unreachable(g *domain.Graph) []string {
	visited := make(map[string]bool, g.NodeCount())
	var queue []string
	for _, t := range g.Triggers() {
		queue = append(queue, t.ID)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, e := range g.OutgoingEdges(current) {
			if !visited[e.TargetNodeID] {
				queue = append(queue, e.TargetNodeID)
			}
		}
	}

	var unreachable []string
	for _, n := range g.NodeList() {
		if !visited[n.ID] {
			unreachable = append(unreachable, n.ID)
		}
	}
	return unreachable
}
