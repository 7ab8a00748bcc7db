package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/google/uuid"
)

// Store implements ports.GraphStore in memory.
// Graphs are kept in their exported JSON form so callers never share pointers with the store.
// Safe for concurrent use.
type Store struct {
	graphs       map[string][]byte
	history      map[string][]*domain.ExecutionState
	historyLimit int
	mu           sync.RWMutex
}

// Option configures the memory store.
type Option func(*Store)

// WithHistoryLimit overrides ports.DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		graphs:       make(map[string][]byte),
		history:      make(map[string][]*domain.ExecutionState),
		historyLimit: ports.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists the graph in memory.
func (s *Store) Save(ctx context.Context, graph *domain.Graph) error {
	if graph.ID == "" {
		return fmt.Errorf("graph id cannot be empty")
	}
	data, err := domain.MarshalGraph(graph)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[graph.ID] = data
	return nil
}

// Get retrieves a copy of the graph.
func (s *Store) Get(ctx context.Context, id string) (*domain.Graph, error) {
	s.mu.RLock()
	data, ok := s.graphs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return domain.UnmarshalGraph(data)
}

// List returns the stored graphs ordered by creation time.
func (s *Store) List(ctx context.Context, ownerID string) ([]*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graphs := make([]*domain.Graph, 0, len(s.graphs))
	for _, data := range s.graphs {
		g, err := domain.UnmarshalGraph(data)
		if err != nil {
			return nil, err
		}
		if ownerID != "" && g.CreatedBy != ownerID {
			continue
		}
		graphs = append(graphs, g)
	}
	sort.Slice(graphs, func(i, j int) bool {
		if graphs[i].CreatedAt.Equal(graphs[j].CreatedAt) {
			return graphs[i].ID < graphs[j].ID
		}
		return graphs[i].CreatedAt.Before(graphs[j].CreatedAt)
	})
	return graphs, nil
}

// Delete removes the graph and its history.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.graphs[id]
	delete(s.graphs, id)
	delete(s.history, id)
	return ok, nil
}

// ExportJSON returns the stored JSON form of the graph.
func (s *Store) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// ImportJSON stores the exported graph under a fresh ID.
func (s *Store) ImportJSON(ctx context.Context, data []byte, ownerID string) (*domain.Graph, error) {
	g, err := domain.ImportGraph(data, uuid.NewString(), ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// RecordHistory appends a copy of the run, dropping the oldest runs past the limit.
func (s *Store) RecordHistory(ctx context.Context, graphID string, state *domain.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := append(s.history[graphID], state.Clone())
	if over := len(runs) - s.historyLimit; over > 0 {
		runs = append([]*domain.ExecutionState(nil), runs[over:]...)
	}
	s.history[graphID] = runs
	return nil
}

// History returns copies of the recorded runs, oldest first.
func (s *Store) History(ctx context.Context, graphID string) ([]*domain.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.history[graphID]
	out := make([]*domain.ExecutionState, len(runs))
	for i, r := range runs {
		out[i] = r.Clone()
	}
	return out, nil
}
