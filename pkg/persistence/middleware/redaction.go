package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// redactionMiddleware masks run variables and node outputs whose keys match a pattern
// before they reach the history. Graph operations pass straight through.
type redactionMiddleware struct {
	ports.GraphStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks values of keys matching the patterns.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.GraphStore) ports.GraphStore {
		return &redactionMiddleware{GraphStore: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) RecordHistory(ctx context.Context, graphID string, state *domain.ExecutionState) error {
	// The executor's state must stay intact; mask a deep copy.
	cloned := *state
	cloned.Variables = m.mask(state.Variables)
	cloned.NodeResults = make(map[string]*domain.NodeExecutionResult, len(state.NodeResults))
	for id, r := range state.NodeResults {
		cp := *r
		cp.Output = m.mask(r.Output)
		cloned.NodeResults[id] = &cp
	}
	return m.GraphStore.RecordHistory(ctx, graphID, &cloned)
}

func (m *redactionMiddleware) mask(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.maskValue(v)
	}
	return out
}

func (m *redactionMiddleware) maskValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return m.mask(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = m.maskValue(item)
		}
		return out
	default:
		return v
	}
}

func (m *redactionMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
