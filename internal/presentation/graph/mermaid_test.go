package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T) *domain.Graph {
	t.Helper()
	b := dsl.New("shapes")
	for _, n := range []struct {
		id  string
		typ domain.NodeType
		opt []dsl.NodeOption
	}{
		{"start", domain.NodeTypeTrigger, nil},
		{"check", domain.NodeTypeCondition, []dsl.NodeOption{dsl.WithBranches()}},
		{"call-api", domain.NodeTypeAction, nil},
		{"each", domain.NodeTypeLoop, nil},
		{"wait", domain.NodeTypeDelay, nil},
		{"end", domain.NodeTypeOutput, nil},
		{"shape", domain.NodeTypeTransform, nil},
	} {
		_, err := b.AddNodeWithID(n.id, n.typ, n.id, n.opt...)
		require.NoError(t, err)
	}
	_, err := b.Connect("start", 0, "check", 0)
	require.NoError(t, err)
	_, err = b.Connect("check", 0, "call-api", 0)
	require.NoError(t, err)
	_, err = b.Connect("check", 1, "end", 0)
	require.NoError(t, err)
	_, err = b.ConnectLabeled("call-api", 0, "end", 0, `say "hi"`)
	require.NoError(t, err)
	return b.Build()
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(buildGraph(t), nil)

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name: "Node Shapes",
			contains: []string{
				`n_start(("start"))`,
				`n_check{"check"}`,
				`n_call_api[["call-api"]]`,
				`n_each{{"each"}}`,
				`n_wait[/"wait"/]`,
				`n_end(["end"])`,
				`n_shape["shape"]`,
			},
		},
		{
			name: "Edges",
			contains: []string{
				"n_start --> n_check",
				`n_check -- "true" --> n_call_api`,
				`n_check -- "false" --> n_end`,
			},
		},
		{
			name:     "Label Escaping",
			contains: []string{`n_call_api -- "say 'hi'" --> n_end`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
	assert.True(t, strings.HasPrefix(got, "graph TD\n"))
	assert.NotContains(t, got, "classDef", "no overlay without a run")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := buildGraph(t)
	state := domain.NewExecutionState(g.ID, "r1", nil, nil, g.UpdatedAt)
	state.NodeResults["start"] = &domain.NodeExecutionResult{NodeID: "start", Status: domain.NodeCompleted}
	state.NodeResults["call-api"] = &domain.NodeExecutionResult{NodeID: "call-api", Status: domain.NodeFailed}
	state.NodeResults["wait"] = &domain.NodeExecutionResult{NodeID: "wait", Status: domain.NodePending}

	got := graph.GenerateMermaid(g, graph.OverlayFromState(state))

	assert.Contains(t, got, "classDef failed")
	assert.Contains(t, got, "class n_start completed;")
	assert.Contains(t, got, "class n_call_api failed;")
	assert.NotContains(t, got, "class n_wait")
	assert.NotContains(t, got, "class n_end")
}

func TestOverlayFromState_Nil(t *testing.T) {
	assert.Nil(t, graph.OverlayFromState(nil))
}
