package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/pkg/adapters/definition"
	"github.com/aretw0/weave/pkg/adapters/file"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/adapters/process"
	"github.com/aretw0/weave/pkg/adapters/redis"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/schema"
)

const (
	storeMemory = "memory"
	storeFile   = "file"
	storeRedis  = "redis"
)

// backend is the persistence selected by the persistent flags.
type backend struct {
	store  ports.GraphStore
	locker ports.DistributedLocker
	close  func() error
}

func openBackend(opts *globalOptions) (*backend, error) {
	b := &backend{close: func() error { return nil }}
	switch opts.store {
	case storeMemory:
		b.store = memory.NewStore()
		b.locker = memory.NewLocker()
	case storeFile:
		b.store = file.New(opts.dir)
		b.locker = memory.NewLocker()
	case storeRedis:
		rs := redis.New(opts.redisAddr, opts.redisPassword, opts.redisDB)
		b.store = rs
		b.locker = redis.NewLocker(rs.Client(), "weave:")
		b.close = rs.Close
	default:
		return nil, fmt.Errorf("unknown store %q (want %s, %s or %s)", opts.store, storeMemory, storeFile, storeRedis)
	}

	var mws []middleware.Middleware
	if len(opts.redact) > 0 {
		mw, err := middleware.NewRedactionMiddleware(opts.redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if opts.encryptionKey != "" {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte(opts.encryptionKey)})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	b.store = middleware.Chain(b.store, mws...)
	return b, nil
}

// newEngine wires the backend, the tool allow-list and any extra options.
// A missing tools file leaves action nodes as pass-through.
func newEngine(opts *globalOptions, b *backend, extra ...weave.Option) (*weave.Engine, error) {
	engineOpts := []weave.Option{
		weave.WithStore(b.store),
		weave.WithLogger(opts.logger),
		weave.WithRunTimeout(opts.runTimeout),
	}
	if b.locker != nil {
		engineOpts = append(engineOpts, weave.WithLocker(b.locker, weave.DefaultLockTTL))
	}
	engine := weave.New(append(engineOpts, extra...)...)

	tools, err := process.LoadTools(opts.tools)
	if err != nil {
		return nil, err
	}
	if len(tools) > 0 {
		runner := process.NewRunner(
			process.WithRegistry(tools),
			process.WithBaseDir(filepath.Dir(opts.tools)),
			process.WithLogger(opts.logger),
		)
		engine.Register(string(domain.NodeTypeAction), runner.Handler())
		opts.logger.Debug("tools loaded", "path", opts.tools, "tools", runner.Tools())
	}
	return engine, nil
}

// loadGraph reads a definition file. JSON files that are not definitions are read
// as exported graphs and validated.
func loadGraph(path string) (*domain.Graph, error) {
	g, err := definition.Load(path)
	if err == nil || !strings.EqualFold(filepath.Ext(path), ".json") {
		return g, err
	}
	var aggr *schema.AggregateError
	if errors.As(err, &aggr) {
		return nil, err
	}

	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return nil, err
	}
	exported, uerr := domain.UnmarshalGraph(data)
	if uerr != nil || exported.Nodes == nil || exported.NodeCount() == 0 {
		return nil, err
	}
	if verr := schema.ValidateGraph(exported); verr != nil {
		return nil, verr
	}
	return exported, nil
}

func parsePayload(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("invalid --payload: %w", err)
	}
	return payload, nil
}
