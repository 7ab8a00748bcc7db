package main

import (
	"github.com/aretw0/weave"
	"github.com/aretw0/weave/pkg/adapters/mcp"
	"github.com/aretw0/weave/pkg/observability"
	"github.com/spf13/cobra"
)

func newMCPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server on stdio",
		Long: `Starts weave as an MCP server over Standard Input/Output.
This lets AI agents list, validate, run and draw the graphs of the selected store.
Logs go to stderr so they never corrupt the JSON-RPC stream on stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer b.close()

			engine, err := newEngine(opts, b, weave.WithLifecycleHooks(observability.LogHooks(opts.logger)))
			if err != nil {
				return err
			}

			srv := mcp.NewServer(engine.Store(), engine, mcp.WithLogger(opts.logger))
			opts.logger.Info("mcp server starting", "transport", "stdio", "store", opts.store)
			return srv.ServeStdio()
		},
	}
}
