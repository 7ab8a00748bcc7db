package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/presentation/tui"
	httpAdapter "github.com/aretw0/weave/pkg/adapters/http"
	"github.com/aretw0/weave/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr    string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph API over HTTP",
		Long: `Starts an HTTP server exposing the selected store: create, list, patch and delete
graphs, start runs, read run history and draw Mermaid diagrams.
Prometheus metrics are served on /metrics unless --metrics=false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer b.close()

			extra := []weave.Option{weave.WithLifecycleHooks(observability.LogHooks(opts.logger))}
			handlerOpts := []httpAdapter.Option{httpAdapter.WithLogger(opts.logger)}
			if metrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				m := observability.NewMetrics("")
				if err := m.Register(reg); err != nil {
					return err
				}
				extra = append(extra, weave.WithLifecycleHooks(m.Hooks()))
				handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(reg))
			}

			engine, err := newEngine(opts, b, extra...)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpAdapter.NewHandler(engine.Store(), engine, handlerOpts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serverErrors := make(chan error, 1)
			go func() {
				tui.PrintBanner(cmd.ErrOrStderr(), weave.Version)
				opts.logger.Info("server listening", "addr", srv.Addr, "store", opts.store, "metrics", metrics)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				opts.logger.Info("shutting down", "timeout", shutdownTimeout)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					opts.logger.Warn("graceful shutdown did not complete", "err", err)
					return srv.Close()
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "Expose Prometheus metrics on /metrics")
	return cmd
}
