package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/weave/pkg/domain"
)

// LogHooks logs every lifecycle event. Run events go to Info, node events to Debug,
// and failed nodes to Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "graph_id", e.GraphID, "run_id", e.RunID)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_finish",
				"graph_id", e.GraphID,
				"run_id", e.RunID,
				"status", e.Status,
				"duration", e.Duration,
				"error", e.Error,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID, "type", e.NodeType)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			level := slog.LevelDebug
			if e.Status == domain.NodeFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "node_leave",
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"type", e.NodeType,
				"status", e.Status,
				"duration", e.Duration,
			)
		},
	}
}
