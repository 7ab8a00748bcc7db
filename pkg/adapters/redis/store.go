package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.GraphStore using Redis.
// Graphs are JSON strings indexed by a ZSET scored by creation time; history is a capped list.
type Store struct {
	client       *backend.Client
	prefix       string
	historyLimit int
	historyTTL   time.Duration
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithHistoryLimit overrides ports.DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithHistoryTTL expires a graph's history once no run was recorded for ttl.
func WithHistoryTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.historyTTL = ttl
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:       client,
		prefix:       "weave:",
		historyLimit: ports.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) graphKey(id string) string {
	return s.prefix + "graph:" + id
}

func (s *Store) historyKey(id string) string {
	return s.prefix + "history:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "graphs"
}

// Save persists the graph and indexes it by creation time.
func (s *Store) Save(ctx context.Context, graph *domain.Graph) error {
	if graph.ID == "" {
		return fmt.Errorf("graph id cannot be empty")
	}
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.graphKey(graph.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(graph.CreatedAt.UnixMilli()),
		Member: graph.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the graph.
func (s *Store) Get(ctx context.Context, id string) (*domain.Graph, error) {
	data, err := s.ExportJSON(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.UnmarshalGraph(data)
}

// List loads every indexed graph in creation order.
func (s *Store) List(ctx context.Context, ownerID string) ([]*domain.Graph, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Graph{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.graphKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to load graphs: %w", err)
	}

	graphs := make([]*domain.Graph, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, backend.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		g, err := domain.UnmarshalGraph(data)
		if err != nil {
			return nil, err
		}
		if ownerID != "" && g.CreatedBy != ownerID {
			continue
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// Delete removes the graph, its history and its index entry.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.graphKey(id))
	pipe.Del(ctx, s.historyKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete from redis: %w", err)
	}
	return del.Val() > 0, nil
}

// ExportJSON returns the stored JSON of the graph.
func (s *Store) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.graphKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return data, nil
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

// RecordHistory pushes the run and trims the list to the history limit.
func (s *Store) RecordHistory(ctx context.Context, graphID string, state *domain.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	key := s.historyKey(graphID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.historyLimit), -1)
	if s.historyTTL > 0 {
		pipe.Expire(ctx, key, s.historyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// History returns the recorded runs, oldest first.
func (s *Store) History(ctx context.Context, graphID string) ([]*domain.ExecutionState, error) {
	items, err := s.client.LRange(ctx, s.historyKey(graphID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	runs := make([]*domain.ExecutionState, 0, len(items))
	for _, item := range items {
		var state domain.ExecutionState
		if err := json.Unmarshal([]byte(item), &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &state)
	}
	return runs, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
