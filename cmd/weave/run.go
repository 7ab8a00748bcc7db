package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/internal/presentation/tui"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/spf13/cobra"
)

const (
	outputMarkdown = "markdown"
	outputJSON     = "json"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		payloadRaw string
		output     string
		record     bool
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a graph once and print the outcome",
		Long: `Loads a graph definition, executes it against the --payload and prints a summary.
With --record the graph is saved in the selected store and the run is added to its history.
The command exits non-zero when the run does not complete.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputMarkdown && output != outputJSON {
				return fmt.Errorf("unknown --output %q (want %s or %s)", output, outputMarkdown, outputJSON)
			}
			payload, err := parsePayload(payloadRaw)
			if err != nil {
				return err
			}
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			b, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer b.close()
			engine, err := newEngine(opts, b)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var state *domain.ExecutionState
			if record {
				if err := b.store.Save(ctx, g); err != nil {
					return fmt.Errorf("failed to save graph: %w", err)
				}
				if state, err = engine.Run(ctx, g.ID, payload); err != nil {
					return err
				}
			} else {
				state = engine.Execute(ctx, g, payload)
			}

			if err := printRun(cmd.OutOrStdout(), output, g, state); err != nil {
				return err
			}
			if state.Status != domain.RunCompleted {
				return fmt.Errorf("run %s %s: %s", state.RunID, state.Status, state.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payloadRaw, "payload", "p", "", "Trigger payload as a JSON object")
	cmd.Flags().StringVarP(&output, "output", "o", outputMarkdown, "Output format: markdown or json")
	cmd.Flags().BoolVar(&record, "record", false, "Save the graph and record the run in the store")
	return cmd
}

func printRun(w io.Writer, output string, g *domain.Graph, state *domain.ExecutionState) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	render := tui.Renderer(tui.Plain)
	if f, ok := w.(*os.File); ok {
		render = tui.NewRenderer(f)
	}
	out, err := render(graph.RunSummary(g, state))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
