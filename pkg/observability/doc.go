// Package observability turns engine lifecycle hooks into Prometheus metrics
// and structured logs. Metrics.Hooks and LogHooks both return
// domain.LifecycleHooks, so either or both can be passed to
// weave.WithLifecycleHooks.
package observability
