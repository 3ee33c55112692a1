package main

import (
	"github.com/spf13/cobra"

	"fintrack/internal/log"
)

func newRootCmd(logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Inspect a fintrack ledger from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	logger = logger.WithComponent(log.ComponentCLI)
	root.AddCommand(newTokenCmd())
	root.AddCommand(newReportCmd(logger))
	return root
}
