package ports

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
)

// DefaultHistoryLimit is the number of runs kept per graph.
const DefaultHistoryLimit = 100

// GraphStore defines keyed storage for graphs and their run history.
type GraphStore interface {
	// Save creates or replaces a graph.
	Save(ctx context.Context, graph *domain.Graph) error

	// Get retrieves a graph by ID.
	// Returns domain.ErrGraphNotFound if the graph does not exist.
	Get(ctx context.Context, id string) (*domain.Graph, error)

	// List returns the stored graphs. A non-empty ownerID keeps only graphs created by that owner.
	List(ctx context.Context, ownerID string) ([]*domain.Graph, error)

	// Delete removes a graph and its history, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ExportJSON returns the JSON form of a stored graph.
	// Returns domain.ErrGraphNotFound if the graph does not exist.
	ExportJSON(ctx context.Context, id string) ([]byte, error)

	// ImportJSON stores a copy of an exported graph under a fresh ID owned by ownerID.
	ImportJSON(ctx context.Context, data []byte, ownerID string) (*domain.Graph, error)

	// RecordHistory appends a finished run, keeping only the most recent runs.
	RecordHistory(ctx context.Context, graphID string, state *domain.ExecutionState) error

	// History returns the recorded runs of a graph, oldest first.
	History(ctx context.Context, graphID string) ([]*domain.ExecutionState, error)
}
