package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractGraph(id, owner string) *domain.Graph {
	g := domain.NewGraph(id, "contract "+id)
	g.CreatedBy = owner
	g.PutNode(&domain.Node{ID: "start", Type: domain.NodeTypeTrigger, Label: "start",
		Outputs: []domain.Port{{ID: "start:output:0", Name: "out", Direction: domain.PortOutput, DataType: domain.DataAny, Connected: true}}})
	g.PutNode(&domain.Node{ID: "end", Type: domain.NodeTypeOutput, Label: "end",
		Config: map[string]any{"note": "kept"},
		Inputs: []domain.Port{{ID: "end:input:0", Name: "in", Direction: domain.PortInput, DataType: domain.DataAny, Connected: true}}})
	g.Edges = append(g.Edges, domain.Edge{ID: "e1", SourceNodeID: "start", SourcePortID: "start:output:0", TargetNodeID: "end", TargetPortID: "end:input:0"})
	g.Variables["region"] = "eu"
	return g
}

func contractRun(graphID, runID string) *domain.ExecutionState {
	now := time.Now().UTC()
	state := domain.NewExecutionState(graphID, runID, nil, map[string]any{"n": runID}, now)
	state.NodeResults["start"] = &domain.NodeExecutionResult{NodeID: "start", Status: domain.NodeCompleted, Output: map[string]any{"n": runID}, StartedAt: now}
	state.Finish(domain.RunCompleted, "", now)
	return state
}

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore implementation
// adheres to the defined interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	prefix := "contract-" + uuid.NewString()[:8]

	t.Run("Save and Get", func(t *testing.T) {
		id := prefix + "-save"
		g := contractGraph(id, "alice")
		require.NoError(t, store.Save(ctx, g), "Save should not return error")

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, g.Name, loaded.Name)
		assert.Equal(t, "alice", loaded.CreatedBy)
		assert.True(t, loaded.Enabled)
		assert.Equal(t, 2, loaded.NodeCount())
		assert.Equal(t, "start", loaded.NodeList()[0].ID, "node order must be preserved")
		assert.Len(t, loaded.Edges, 1)
		assert.Equal(t, "eu", loaded.Variables["region"])

		end, ok := loaded.Node("end")
		require.True(t, ok)
		assert.Equal(t, "kept", end.ConfigValue("note"))
		assert.True(t, end.Inputs[0].Connected)
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		id := prefix + "-copy"
		require.NoError(t, store.Save(ctx, contractGraph(id, "alice")))

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		loaded.Name = "mutated"
		loaded.Variables["region"] = "us"

		again, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "contract "+id, again.Name)
		assert.Equal(t, "eu", again.Variables["region"])
	})

	t.Run("Save replaces", func(t *testing.T) {
		id := prefix + "-replace"
		g := contractGraph(id, "alice")
		require.NoError(t, store.Save(ctx, g))
		g.Name = "renamed"
		g.Enabled = false
		require.NoError(t, store.Save(ctx, g))

		loaded, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "renamed", loaded.Name)
		assert.False(t, loaded.Enabled)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("List by owner", func(t *testing.T) {
		owner := prefix + "-owner"
		a := contractGraph(prefix+"-list-a", owner)
		b := contractGraph(prefix+"-list-b", owner)
		other := contractGraph(prefix+"-list-c", prefix+"-someone-else")
		for _, g := range []*domain.Graph{a, b, other} {
			require.NoError(t, store.Save(ctx, g))
		}

		owned, err := store.List(ctx, owner)
		require.NoError(t, err)
		ids := make([]string, 0, len(owned))
		for _, g := range owned {
			ids = append(ids, g.ID)
		}
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		ids = ids[:0]
		for _, g := range all {
			ids = append(ids, g.ID)
		}
		assert.Subset(t, ids, []string{a.ID, b.ID, other.ID})
	})

	t.Run("Delete", func(t *testing.T) {
		id := prefix + "-delete"
		require.NoError(t, store.Save(ctx, contractGraph(id, "alice")))
		require.NoError(t, store.RecordHistory(ctx, id, contractRun(id, "r1")))

		deleted, err := store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")
		assert.True(t, deleted)

		_, err = store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound, "Get after Delete should return ErrGraphNotFound")
		history, err := store.History(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, history, "Delete should drop the history")

		deleted, err = store.Delete(ctx, id)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Export and Import", func(t *testing.T) {
		id := prefix + "-export"
		require.NoError(t, store.Save(ctx, contractGraph(id, "alice")))

		data, err := store.ExportJSON(ctx, id)
		require.NoError(t, err)

		imported, err := store.ImportJSON(ctx, data, "bob")
		require.NoError(t, err)
		assert.NotEqual(t, id, imported.ID)
		assert.Equal(t, "bob", imported.CreatedBy)
		assert.Equal(t, 2, imported.NodeCount())
		assert.Len(t, imported.Edges, 1)
		assert.Equal(t, "eu", imported.Variables["region"])

		stored, err := store.Get(ctx, imported.ID)
		require.NoError(t, err, "imported graph must be stored")
		again, err := store.ExportJSON(ctx, stored.ID)
		require.NoError(t, err)
		reimported, err := domain.UnmarshalGraph(again)
		require.NoError(t, err)
		assert.Equal(t, imported.NodeCount(), reimported.NodeCount())
		assert.Len(t, reimported.Edges, len(imported.Edges))
		assert.Equal(t, imported.Variables, reimported.Variables)

		_, err = store.ExportJSON(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
		_, err = store.ImportJSON(ctx, []byte("{broken"), "bob")
		assert.Error(t, err)
	})

	t.Run("History", func(t *testing.T) {
		id := prefix + "-history"
		for i := 0; i < 3; i++ {
			require.NoError(t, store.RecordHistory(ctx, id, contractRun(id, fmt.Sprintf("r%d", i))))
		}

		history, err := store.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "r0", history[0].RunID)
		assert.Equal(t, "r2", history[2].RunID)
		assert.Equal(t, domain.RunCompleted, history[2].Status)
		assert.Equal(t, domain.NodeCompleted, history[2].NodeResults["start"].Status)

		empty, err := store.History(ctx, prefix+"-never-ran")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("History is bounded", func(t *testing.T) {
		id := prefix + "-bounded"
		total := DefaultHistoryLimit + 5
		for i := 0; i < total; i++ {
			require.NoError(t, store.RecordHistory(ctx, id, contractRun(id, fmt.Sprintf("r%d", i))))
		}

		history, err := store.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, DefaultHistoryLimit)
		assert.Equal(t, "r5", history[0].RunID, "oldest runs are dropped first")
		assert.Equal(t, fmt.Sprintf("r%d", total-1), history[len(history)-1].RunID)
	})
}
