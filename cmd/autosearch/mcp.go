package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpTransport "github.com/PonchoGAD/auto-search-mvp/internal/transport/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search tools over the Model Context Protocol on stdio",
	Long:  "Exposes search_listings, interpret_query and data_signals as MCP tools. Logs go to stderr.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		watchLexicon(ctx, a.lexicon)

		logger.Info("Starting MCP server", zap.String("transport", "stdio"))
		return mcpTransport.NewServer(a.search, a.search, a.analytics, logger).Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
