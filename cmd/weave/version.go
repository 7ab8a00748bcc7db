package main

import (
	"fmt"

	"github.com/aretw0/weave"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of weave",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "weave version %s\n", weave.Version)
		},
	}
}
