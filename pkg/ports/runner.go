package ports

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
)

// GraphRunner runs stored graphs. It is the port driving adapters (HTTP, CLI) depend on.
type GraphRunner interface {
	// Run loads the graph, executes it against payload and records the run.
	// The returned state is non-nil whenever the graph was found and enabled,
	// even if the run itself failed.
	Run(ctx context.Context, graphID string, payload map[string]any) (*domain.ExecutionState, error)
}
