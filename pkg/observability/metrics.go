package observability

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "weave"

// Metrics records run and node outcomes.
// A Metrics value is safe for concurrent runs.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	activeRuns   prometheus.Gauge
	nodes        *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors under the given namespace.
// An empty namespace uses DefaultNamespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished graph runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of graph runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Runs currently executing.",
		}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Node executions by node type and final status.",
		}, []string{"type", "status"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Time spent executing nodes, by node type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.runs, m.runDuration, m.activeRuns, m.nodes, m.nodeDuration}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.activeRuns.Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.activeRuns.Dec()
			status := string(e.Status)
			m.runs.WithLabelValues(status).Inc()
			m.runDuration.WithLabelValues(status).Observe(e.Duration.Seconds())
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodes.WithLabelValues(string(e.NodeType), string(e.Status)).Inc()
			m.nodeDuration.WithLabelValues(string(e.NodeType)).Observe(e.Duration.Seconds())
		},
	}
}
