package registry

import (
	"context"
	"maps"
	"strings"

	"github.com/aretw0/weave/internal/coerce"
	"github.com/aretw0/weave/pkg/domain"
)

// RegisterBuiltins binds the pass-through and transform handlers.
// "action" is left unbound: hosts attach their tool collaborator to it.
func RegisterBuiltins(r *Registry) {
	r.Register(string(domain.NodeTypeTrigger), Identity)
	r.Register(string(domain.NodeTypeOutput), Identity)
	// merge and parallel do no fan-in/fan-out synchronization.
	r.Register(string(domain.NodeTypeMerge), Identity)
	r.Register(string(domain.NodeTypeParallel), Identity)
	r.Register(string(domain.NodeTypeTransform), Transform)
}

// Identity returns its input unchanged.
func Identity(_ context.Context, _ *domain.Node, input map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
	return input, nil
}

// Transform substitutes every {{key}} in config.expression with the string form of input[key]
// and returns the input plus a "transformed" entry. Unknown placeholders are left as is.
func Transform(_ context.Context, node *domain.Node, input map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
	expr := ""
	if v := node.ConfigValue(domain.ConfigExpression); v != nil {
		expr = coerce.String(v)
	}
	out := maps.Clone(input)
	if out == nil {
		out = make(map[string]any)
	}
	out[domain.KeyTransformed] = Interpolate(expr, input)
	return out, nil
}

// Interpolate replaces {{key}} placeholders with values from vars.
func Interpolate(expr string, vars map[string]any) string {
	if !strings.Contains(expr, "{{") {
		return expr
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", coerce.String(v))
	}
	return strings.NewReplacer(pairs...).Replace(expr)
}
