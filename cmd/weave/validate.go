package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/schema"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check graph files for structural errors",
		Long: `Compiles each file and reports dangling edges, unknown ports, bad config
and missing triggers. Every problem is listed, not just the first one.
Nodes that no trigger reaches are reported as warnings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				g, err := loadGraph(path)
				if err == nil {
					fmt.Fprintf(out, "ok   %s (%d nodes, %d edges)\n", path, g.NodeCount(), len(g.Edges))
					if unreachable := schema.Unreachable(g); len(unreachable) > 0 {
						fmt.Fprintf(out, "     warning: unreachable from any trigger: %s\n", strings.Join(unreachable, ", "))
					}
					continue
				}
				invalid++
				opts.logger.Debug("validation failed", "path", path, "err", err)
				fmt.Fprintf(out, "FAIL %s\n", path)
				details := schema.ValidationErrors(err)
				if len(details) == 0 {
					details = []error{err}
				}
				for _, d := range details {
					fmt.Fprintf(out, "     - %s\n", d)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d graphs are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
