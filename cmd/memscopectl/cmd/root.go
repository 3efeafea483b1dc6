// Package cmd assembles the memscopectl subcommands.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCommand returns the memscopectl root command with every
// subcommand attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "memscopectl",
		Short:        "launch and inspect memscopetrack allocation traces",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCommand(),
		newPlotCommand(),
		newWatchCommand(),
		newScopesCommand(),
	)

	return root
}
