package main

import (
	"fmt"

	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Print the graph as a Mermaid diagram",
		Long: `Outputs a Mermaid flowchart (graph TD) of the graph.
With --run, node statuses from a recorded run are overlaid; use "latest" for the newest run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			var overlay *graph.Overlay
			if runID != "" {
				b, err := openBackend(opts)
				if err != nil {
					return err
				}
				defer b.close()
				history, err := b.store.History(cmd.Context(), g.ID)
				if err != nil {
					return err
				}
				if len(history) == 0 {
					return fmt.Errorf("graph %s has no recorded runs", g.ID)
				}
				state := history[len(history)-1]
				if runID != "latest" {
					state = nil
					for _, s := range history {
						if s.RunID == runID {
							state = s
						}
					}
					if state == nil {
						return fmt.Errorf("run %s not found for graph %s", runID, g.ID)
					}
				}
				overlay = graph.OverlayFromState(state)
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", `Overlay a recorded run ("latest" or a run ID)`)
	return cmd
}
