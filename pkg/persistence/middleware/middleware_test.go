package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleRun() *domain.ExecutionState {
	state := domain.NewExecutionState("g", "run-1", nil, map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
		"cards": []any{map[string]any{"card_ssn": "x"}},
	}, time.Now())
	state.NodeResults["login"] = &domain.NodeExecutionResult{
		NodeID: "login",
		Status: domain.NodeCompleted,
		Output: map[string]any{"api_password": "hunter2", "ok": true},
	}
	state.Finish(domain.RunCompleted, "", time.Now())
	return state
}

func TestRedactionMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactionMiddleware([]string{"password", "ssn"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	state := sampleRun()
	require.NoError(t, store.RecordHistory(ctx, "g", state))

	assert.Equal(t, "secret123", state.Variables["user_password"], "the executor's state must not be modified")
	assert.Equal(t, "hunter2", state.NodeResults["login"].Output["api_password"])

	history, err := underlying.History(ctx, "g")
	require.NoError(t, err)
	require.Len(t, history, 1)
	stored := history[0]
	assert.Equal(t, "jdoe", stored.Variables["username"])
	assert.Equal(t, middleware.Mask, stored.Variables["user_password"])
	assert.Equal(t, middleware.Mask, stored.Variables["details"].(map[string]any)["ssn_number"])
	assert.Equal(t, "123 St", stored.Variables["details"].(map[string]any)["address"])
	assert.Equal(t, middleware.Mask, stored.Variables["cards"].([]any)[0].(map[string]any)["card_ssn"])
	assert.Equal(t, middleware.Mask, stored.NodeResults["login"].Output["api_password"])
	assert.Equal(t, true, stored.NodeResults["login"].Output["ok"])
}

func TestRedactionMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactionMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestRedactionMiddleware_Contract(t *testing.T) {
	mw, err := middleware.NewRedactionMiddleware([]string{"password"})
	require.NoError(t, err)
	ports.RunGraphStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	require.NoError(t, store.RecordHistory(ctx, "g", sampleRun()))

	raw, err := underlying.History(ctx, "g")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.NotContains(t, raw[0].Variables, "user_password", "variables must be hidden")
	assert.Contains(t, raw[0].Variables, "__encrypted__")
	assert.Empty(t, raw[0].NodeResults)
	assert.Equal(t, "run-1", raw[0].RunID)
	assert.Equal(t, domain.RunCompleted, raw[0].Status)

	history, err := store.History(ctx, "g")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "secret123", history[0].Variables["user_password"])
	assert.Equal(t, "hunter2", history[0].NodeResults["login"].Output["api_password"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	mwOld, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, mwOld(underlying).RecordHistory(ctx, "g", sampleRun()))

	mwNew, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	rotated := mwNew(underlying)

	history, err := rotated.History(ctx, "g")
	require.NoError(t, err, "fallback key must decrypt old runs")
	assert.Equal(t, "jdoe", history[0].Variables["username"])

	require.NoError(t, rotated.RecordHistory(ctx, "g", sampleRun()))
	_, err = mwOld(underlying).History(ctx, "g")
	assert.ErrorIs(t, err, middleware.ErrUndecryptable, "old key alone cannot read runs sealed with the new key")
}

func TestEncryptionMiddleware_RejectsPlainEntries(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.RecordHistory(ctx, "g", sampleRun()))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).History(ctx, "g")
	assert.ErrorIs(t, err, middleware.ErrMissingEnvelope)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("old")},
	})
	assert.ErrorContains(t, err, "fallback key 0")
}

func TestEncryptionMiddleware_EnvelopeBoundToRun(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, mw(underlying).RecordHistory(ctx, "g", sampleRun()))

	raw, err := underlying.History(ctx, "g")
	require.NoError(t, err)
	moved := *raw[0]
	moved.RunID = "run-2"
	other := memory.NewStore()
	require.NoError(t, other.RecordHistory(ctx, "g", &moved))

	_, err = mw(other).History(ctx, "g")
	assert.ErrorIs(t, err, middleware.ErrUndecryptable)
}

func TestChain_OrderAndPassthrough(t *testing.T) {
	underlying := memory.NewStore()
	redact, err := middleware.NewRedactionMiddleware([]string{"password"})
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := middleware.Chain(underlying, redact, encrypt)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewGraph("g", "graph")))
	_, err = underlying.Get(ctx, "g")
	require.NoError(t, err, "graph operations pass through")

	require.NoError(t, store.RecordHistory(ctx, "g", sampleRun()))
	history, err := store.History(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, history[0].Variables["user_password"], "redaction runs before encryption")
}
