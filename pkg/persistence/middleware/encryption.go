package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// EncryptionConfig holds the AES-256 keys of the encryption middleware.
type EncryptionConfig struct {
	// ActiveKey seals new runs. It must be 32 bytes.
	ActiveKey []byte
	// FallbackKeys are tried in order when ActiveKey cannot open a run,
	// so runs sealed before a key rotation stay readable.
	FallbackKeys [][]byte
}

var (
	// ErrMissingEnvelope is returned when a history entry read through the
	// encryption middleware was not written by it.
	ErrMissingEnvelope = errors.New("run is missing encrypted data envelope")
	// ErrUndecryptable is returned when no configured key opens an envelope.
	ErrUndecryptable = errors.New("no configured key can decrypt run")
)

const envelopeKey = "__encrypted__"

// encryptionMiddleware seals every recorded run into an AES-GCM envelope.
// Only identifiers, status and timestamps stay readable in the wrapped store.
// The graph and run IDs are authenticated with the ciphertext, so an envelope
// copied onto another run fails to open.
type encryptionMiddleware struct {
	ports.GraphStore
	// keyring[0] is the active key.
	keyring []cipher.AEAD
}

// NewEncryptionMiddleware returns a middleware that encrypts run history.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	keys := append([][]byte{config.ActiveKey}, config.FallbackKeys...)
	keyring := make([]cipher.AEAD, 0, len(keys))
	for i, key := range keys {
		if len(key) != 32 {
			if i == 0 {
				return nil, errors.New("active key must be 32 bytes (AES-256)")
			}
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i-1)
		}
		aead, err := newAEAD(key)
		if err != nil {
			return nil, err
		}
		keyring = append(keyring, aead)
	}
	return func(next ports.GraphStore) ports.GraphStore {
		return &encryptionMiddleware{GraphStore: next, keyring: keyring}
	}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func additionalData(graphID, runID string) []byte {
	return []byte(graphID + "\x00" + runID)
}

func (m *encryptionMiddleware) RecordHistory(ctx context.Context, graphID string, state *domain.ExecutionState) error {
	plain, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	active := m.keyring[0]
	nonce := make([]byte, active.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := active.Seal(nonce, nonce, plain, additionalData(graphID, state.RunID))

	envelope := &domain.ExecutionState{
		GraphID:     state.GraphID,
		RunID:       state.RunID,
		Status:      state.Status,
		StartedAt:   state.StartedAt,
		CompletedAt: state.CompletedAt,
		NodeResults: map[string]*domain.NodeExecutionResult{},
		Variables:   map[string]any{envelopeKey: base64.StdEncoding.EncodeToString(sealed)},
	}
	return m.GraphStore.RecordHistory(ctx, graphID, envelope)
}

func (m *encryptionMiddleware) History(ctx context.Context, graphID string) ([]*domain.ExecutionState, error) {
	envelopes, err := m.GraphStore.History(ctx, graphID)
	if err != nil {
		return nil, err
	}

	runs := make([]*domain.ExecutionState, 0, len(envelopes))
	for _, envelope := range envelopes {
		run, err := m.open(graphID, envelope)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", envelope.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (m *encryptionMiddleware) open(graphID string, envelope *domain.ExecutionState) (*domain.ExecutionState, error) {
	encoded, ok := envelope.Variables[envelopeKey].(string)
	if !ok {
		// Plain entries are never returned once encryption is configured.
		return nil, ErrMissingEnvelope
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	aad := additionalData(graphID, envelope.RunID)
	for _, aead := range m.keyring {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, fmt.Errorf("%w: envelope too short", ErrUndecryptable)
		}
		plain, err := aead.Open(nil, sealed[:n], sealed[n:], aad)
		if err != nil {
			continue
		}
		var run domain.ExecutionState
		if err := json.Unmarshal(plain, &run); err != nil {
			return nil, fmt.Errorf("unmarshal decrypted run: %w", err)
		}
		return &run, nil
	}
	return nil, ErrUndecryptable
}
