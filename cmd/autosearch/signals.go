package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the data signals report (no-results rate, brand gaps, noisy sources)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newAnalyticsApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		signals, err := a.analytics.DataSignals(ctx)
		if err != nil {
			return err //nolint:wrapcheck // already wrapped by the analytics service
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(signals) //nolint:wrapcheck // CLI output
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
