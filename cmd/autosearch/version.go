package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PonchoGAD/auto-search-mvp/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// No config or logger needed.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "autosearch "+version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
