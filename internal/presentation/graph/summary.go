package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/weave/pkg/domain"
)

// RunSummary renders a run as Markdown: a status header and one table row per
// reached node, in graph order.
func RunSummary(g *domain.Graph, state *domain.ExecutionState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", g.Name)
	fmt.Fprintf(&sb, "- **Run:** `%s`\n", state.RunID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", state.Status)
	if state.CompletedAt != nil {
		fmt.Fprintf(&sb, "- **Duration:** %s\n", state.CompletedAt.Sub(state.StartedAt).Round(time.Microsecond))
	}
	if state.Error != "" {
		fmt.Fprintf(&sb, "\n> **Error:** %s\n", cell(state.Error))
	}

	sb.WriteString("\n| Node | Type | Status | Duration | Error |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, node := range g.NodeList() {
		r, ok := state.NodeResults[node.ID]
		if !ok {
			continue
		}
		label := node.Label
		if label == "" {
			label = node.ID
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			cell(label), node.Type, r.Status, r.Duration.Round(time.Microsecond), cell(r.Error))
	}
	return sb.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
