package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunGraphStoreContract(t, store)
}

func TestMemoryStore_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithHistoryLimit(2))

	for _, id := range []string{"a", "b", "c"} {
		state := domain.NewExecutionState("g", id, nil, nil, time.Now())
		require.NoError(t, store.RecordHistory(ctx, "g", state))
	}

	history, err := store.History(ctx, "g")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].RunID)
	assert.Equal(t, "c", history[1].RunID)
}

func TestMemoryStore_RecordHistoryCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	state := domain.NewExecutionState("g", "r", nil, map[string]any{"k": "v"}, time.Now())
	require.NoError(t, store.RecordHistory(ctx, "g", state))

	state.Variables["k"] = "changed"

	history, err := store.History(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "v", history[0].Variables["k"])
}

func TestMemoryStore_SaveRejectsEmptyID(t *testing.T) {
	err := memory.NewStore().Save(context.Background(), domain.NewGraph("", "nameless"))
	assert.Error(t, err)
}
