package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/db"
	"github.com/PonchoGAD/auto-search-mvp/internal/db/postgres"
	"github.com/PonchoGAD/auto-search-mvp/internal/repository/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/resilience"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the listing vector index and the postgres tables",
	Long: "Creates the FT vector index for listings unless it exists, then applies the postgres schema " +
		"(search_history, raw_documents, normalized_documents) when postgres.dsn is set. Safe to re-run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		retry := resilience.DefaultPolicy()
		retry.OnRetry = resilience.LogRetries(logger, "migrate")

		store, err := openRedis(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		def, err := listing.IndexDefinition(indexConfig())
		if err != nil {
			return fmt.Errorf("listing index definition: %w", err)
		}

		var created bool
		err = resilience.Do(ctx, retry, func(ctx context.Context) error {
			var ensureErr error
			created, ensureErr = listing.EnsureIndex(ctx, store, def)
			return ensureErr
		})
		if err != nil {
			return fmt.Errorf("ensure listing index: %w", err)
		}
		logger.Info("Listing index ready", zap.String("index", def.Name), zap.Bool("created", created))

		if cfg.Postgres.DSN == "" {
			logger.Info("postgres.dsn not set, skipping postgres schema")
			return nil
		}

		pg, err := postgres.New(ctx, cfg.Postgres.DSN, postgres.PoolConfig{MaxConns: 2})
		if err != nil {
			return err //nolint:wrapcheck // eris-wrapped by the store
		}
		defer func() { _ = pg.Close() }()

		if err := resilience.Do(ctx, retry, pg.Migrate); err != nil {
			return eris.Wrap(err, "postgres migrate")
		}
		logger.Info("Postgres schema applied")
		return nil
	},
}

func indexAlgorithm(name string) db.VectorAlgorithm {
	if name == string(db.VectorFlat) {
		return db.VectorFlat
	}
	return db.VectorHNSW
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
