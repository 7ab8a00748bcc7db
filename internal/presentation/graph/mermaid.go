package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
)

// Overlay carries per-node run outcomes to paint on the graph.
type Overlay struct {
	Statuses map[string]domain.NodeStatus
}

// OverlayFromState collects the node statuses recorded by a run.
// A nil state yields a nil overlay.
func OverlayFromState(state *domain.ExecutionState) *Overlay {
	if state == nil {
		return nil
	}
	o := &Overlay{Statuses: make(map[string]domain.NodeStatus, len(state.NodeResults))}
	for id, r := range state.NodeResults {
		o.Statuses[id] = r.Status
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for the graph.
// Node shapes follow the node type:
// - Trigger: ((Circle))
// - Condition: {Rhombus}
// - Action: [[Subroutine]]
// - Loop: {{Hexagon}}
// - Delay: [/Parallelogram/]
// - Output: ([Stadium])
// - Default: [Rectangle]
// Condition edges without a label are labelled with their branch port name.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.NodeList() {
		opener, closer := shape(node.Type)
		label := escapeLabel(node.Label)
		if label == "" {
			label = escapeLabel(node.ID)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(node.ID), opener, label, closer)
	}

	for _, e := range g.Edges {
		label := e.Label
		if label == "" {
			label = branchName(g, e)
		}
		arrow := "-->"
		if label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(label))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", mermaidID(e.SourceNodeID), arrow, mermaidID(e.TargetNodeID))
	}

	if overlay != nil && len(overlay.Statuses) > 0 {
		sb.WriteString("\n    %% Run Overlay\n")
		// color:#000 keeps the text readable on both light and dark themes.
		sb.WriteString("    classDef completed fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef running fill:#fff8e1,stroke:#f9a825,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef skipped fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		for _, node := range g.NodeList() {
			status, ok := overlay.Statuses[node.ID]
			if !ok || status == domain.NodePending {
				continue
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", mermaidID(node.ID), status)
		}
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeTrigger:
		return "((", "))"
	case domain.NodeTypeCondition:
		return "{", "}"
	case domain.NodeTypeAction:
		return "[[", "]]"
	case domain.NodeTypeLoop:
		return "{{", "}}"
	case domain.NodeTypeDelay:
		return "[/", "/]"
	case domain.NodeTypeOutput:
		return "([", "])"
	default:
		return "[", "]"
	}
}

func branchName(g *domain.Graph, e domain.Edge) string {
	src, ok := g.Node(e.SourceNodeID)
	if !ok || src.Type != domain.NodeTypeCondition {
		return ""
	}
	for _, p := range src.Outputs {
		if p.ID == e.SourcePortID {
			return p.Name
		}
	}
	return ""
}

// mermaidID prefixes the ID so keywords like "end" and leading digits stay valid.
func mermaidID(id string) string {
	var sb strings.Builder
	sb.WriteString("n_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
