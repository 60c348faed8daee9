package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/config"
	logpkg "github.com/PonchoGAD/auto-search-mvp/internal/logger"
	"github.com/PonchoGAD/auto-search-mvp/internal/version"
)

var (
	envFlag string
	cfg     config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autosearch",
	Short: "Natural-language vehicle listing search",
	Long: "Interprets free-form Russian or English vehicle queries, retrieves listings from a vector index, " +
		"ranks and explains them, and reports demand and data quality signals from the search log.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load(envFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := logpkg.New(logpkg.Options{
			Env:     envFlag,
			Level:   cfg.Logging.Level,
			Service: "autosearch",
			Version: version.Version,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", config.GetEnv(), "config environment (local, dev, prod)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
