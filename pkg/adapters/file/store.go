package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/google/uuid"
)

const (
	graphsDir  = "graphs"
	historyDir = "history"
)

// ErrInvalidID is returned for graph IDs that cannot be used as file names.
var ErrInvalidID = errors.New("invalid graph id")

// Store implements ports.GraphStore using the local filesystem.
// Each graph is a JSON file under graphs/, its run history a JSON array under history/.
type Store struct {
	BasePath     string
	historyLimit int
	mu           sync.Mutex
}

// Option configures the file store.
type Option func(*Store)

// WithHistoryLimit overrides ports.DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".weave".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = ".weave"
	}
	s := &Store{BasePath: basePath, historyLimit: ports.DefaultHistoryLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *Store) graphPath(id string) string {
	return filepath.Join(s.BasePath, graphsDir, id+".json")
}

func (s *Store) historyPath(id string) string {
	return filepath.Join(s.BasePath, historyDir, id+".json")
}

// writeAtomic writes to a temp file in the destination directory, fsyncs it and renames it
// over the destination, so readers never observe a partial file.
func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Save persists the graph atomically.
func (s *Store) Save(ctx context.Context, graph *domain.Graph) error {
	if err := checkID(graph.ID); err != nil {
		return err
	}
	data, err := domain.MarshalGraph(graph)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.graphPath(graph.ID), data)
}

// Get reads a graph file.
func (s *Store) Get(ctx context.Context, id string) (*domain.Graph, error) {
	data, err := s.ExportJSON(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.UnmarshalGraph(data)
}

// List reads every graph file, ordered by creation time.
func (s *Store) List(ctx context.Context, ownerID string) ([]*domain.Graph, error) {
	entries, err := os.ReadDir(filepath.Join(s.BasePath, graphsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Graph{}, nil
		}
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	graphs := make([]*domain.Graph, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		g, err := s.Get(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			if errors.Is(err, domain.ErrGraphNotFound) {
				continue
			}
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

// Delete removes the graph file and its history file.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.graphPath(id))
	existed := err == nil
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to delete graph file: %w", err)
	}
	if err := os.Remove(s.historyPath(id)); err != nil && !os.IsNotExist(err) {
		return existed, fmt.Errorf("failed to delete history file: %w", err)
	}
	return existed, nil
}

// ExportJSON returns the graph file contents.
func (s *Store) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.graphPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
		}
		return nil, fmt.Errorf("failed to read graph file: %w", err)
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

// RecordHistory appends the run to the graph's history file, keeping the most recent runs.
func (s *Store) RecordHistory(ctx context.Context, graphID string, state *domain.ExecutionState) error {
	if err := checkID(graphID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.readHistory(graphID)
	if err != nil {
		return err
	}
	runs = append(runs, state)
	if over := len(runs) - s.historyLimit; over > 0 {
		runs = runs[over:]
	}

	data, err := json.Marshal(runs)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return writeAtomic(s.historyPath(graphID), data)
}

// History reads the graph's history file, oldest first.
func (s *Store) History(ctx context.Context, graphID string) ([]*domain.ExecutionState, error) {
	if err := checkID(graphID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHistory(graphID)
}

func (s *Store) readHistory(graphID string) ([]*domain.ExecutionState, error) {
	data, err := os.ReadFile(s.historyPath(graphID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.ExecutionState{}, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var runs []*domain.ExecutionState
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return runs, nil
}
