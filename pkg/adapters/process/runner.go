package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os/exec"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/weave/internal/coerce"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/registry"
)

// EnvPrefix prefixes every input passed to a tool process.
const EnvPrefix = "WEAVE_ARG_"

// KeyResult is the output key holding a tool's parsed stdout.
const KeyResult = "result"

// ErrToolNotRegistered is returned for tools missing from the allow-list.
var ErrToolNotRegistered = errors.New("process tool not registered")

// ErrNoTool is returned when an action node has no config.tool.
var ErrNoTool = errors.New("action node has no tool configured")

// Runner executes allow-listed local processes for action nodes.
// It follows a Strict Registry pattern for security (Allow-Listing).
type Runner struct {
	tools   map[string]RegisteredProcess
	baseDir string
	timeout time.Duration
	logger  *slog.Logger
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
// Entries are expected to come from LoadTools, so a bad timeout falls back
// to the runner default.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			timeout, _ := tool.timeout()
			r.tools[name] = RegisteredProcess{
				Command: tool.Command,
				Args:    tool.Args,
				Env:     tool.Environment,
				Timeout: timeout,
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout sets the default per-invocation timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		tools:  make(map[string]RegisteredProcess),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.tools[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Tools returns the registered tool names, sorted.
func (r *Runner) Tools() []string {
	return slices.Sorted(maps.Keys(r.tools))
}

// Execute runs the named tool with args exposed as WEAVE_ARG_<KEY> environment variables.
// Inputs are never passed as command flags, which rules out flag injection.
// Stdout is decoded as JSON when it looks like an object or array, otherwise returned trimmed.
func (r *Runner) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	proc, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotRegistered, name)
	}

	timeout := proc.Timeout
	if timeout == 0 {
		timeout = r.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir

	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		env = append(env, EnvPrefix+envKey(k)+"="+envValue(v))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.DebugContext(ctx, "tool finished", "tool", name, "duration", time.Since(start), "err", err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("tool %s: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("tool %s failed: %v. Stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.String()), nil
}

// Handler returns a registry.Handler for action nodes: it runs config.tool with the node input
// and returns the input plus the tool result under KeyResult.
func (r *Runner) Handler() registry.Handler {
	return func(ctx context.Context, node *domain.Node, input map[string]any, _ *domain.ExecutionState) (map[string]any, error) {
		tool := node.ConfigString(domain.ConfigTool)
		if tool == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoTool, node.ID)
		}
		result, err := r.Execute(ctx, tool, input)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(input)+1)
		maps.Copy(out, input)
		out[KeyResult] = result
		return out, nil
	}
}

func parseOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return trimmed
}

// envKey upper-cases k and replaces anything that is not a letter, digit or underscore.
func envKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '_' || unicode.IsDigit(r):
			return r
		case unicode.IsLetter(r) && r < unicode.MaxASCII:
			return unicode.ToUpper(r)
		default:
			return '_'
		}
	}, k)
}

func envValue(v any) string {
	if v == nil {
		return ""
	}
	return coerce.String(v)
}
