package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/config"
	dbbadger "github.com/PonchoGAD/auto-search-mvp/internal/db/badger"
	"github.com/PonchoGAD/auto-search-mvp/internal/db/postgres"
	dbredis "github.com/PonchoGAD/auto-search-mvp/internal/db/redis"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
	"github.com/PonchoGAD/auto-search-mvp/internal/metrics"
	"github.com/PonchoGAD/auto-search-mvp/internal/repository/listing"
	searchlogrepo "github.com/PonchoGAD/auto-search-mvp/internal/repository/searchlog"
	"github.com/PonchoGAD/auto-search-mvp/internal/resilience"
	analyticsuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/analytics"
	healthuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/health"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/interpret"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/retrieve"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/score"
	searchuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/search"
)

// searchLogStore is what every search log backend provides.
type searchLogStore interface {
	Append(ctx context.Context, e searchlog.Entry) error
	Entries(ctx context.Context, since time.Time) ([]searchlog.Entry, error)
	Recent(ctx context.Context, limit int) ([]searchlog.Entry, error)
	Ping(ctx context.Context) error
}

// app holds the wired services of one process. Close releases them in reverse order.
type app struct {
	lexicon   *lexicon.Holder
	redis     *dbredis.Store
	postgres  *postgres.Store // nil when postgres.dsn is empty
	searchLog searchLogStore
	embedder  domain.Embedder
	search    *searchuc.Service
	analytics *analyticsuc.Service
	health    *healthuc.Service
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires the full search stack: lexicon, vector index, embedder chain,
// search log, orchestrator, analytics and health.
func newApp(ctx context.Context) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	lex, err := loadLexicon()
	if err != nil {
		return nil, err
	}
	a.lexicon = lex

	store, err := openRedis(ctx)
	if err != nil {
		return nil, err
	}
	a.redis = store
	a.closers = append(a.closers, store.Close)

	if err := a.openLogStores(ctx); err != nil {
		return nil, err
	}

	a.embedder = buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	retriever := retrieve.New(a.embedder, listing.New(store, cfg.Index.Name), lex, retrieve.Config{
		Overfetch: cfg.Retrieval.Overfetch,
		Tolerance: cfg.Retrieval.Tolerance,
		YearSlack: *cfg.Retrieval.YearSlack,
	})

	a.search = searchuc.New(
		interpret.New(lex),
		retriever,
		score.New(cfg.Scoring, lex),
		a.searchLog,
		searchuc.Config{
			TopK:               cfg.Retrieval.TopK,
			MaxTopK:            cfg.Retrieval.MaxTopK,
			DiversityThreshold: cfg.Diversity.Threshold,
			LogTimeout:         cfg.SearchLog.WriteTimeout(),
			Retry:              retrievalRetry(cfg.Retrieval.Retry),
		},
		logger,
	)

	checks := []healthuc.Check{
		{Name: "vector_index", Critical: true, Probe: healthuc.IndexCheck(store, cfg.Index.Name)},
		{Name: "embedding", Probe: healthuc.EmbeddingCheck(newEmbeddingHealthChecker(a.embedder))},
		{Name: "search_log", Probe: healthuc.PingCheck(a.searchLog)},
	}
	if a.postgres != nil && cfg.SearchLog.Backend != config.SearchLogPostgres {
		checks = append(checks, healthuc.Check{Name: "document_stats", Probe: healthuc.PingCheck(a.postgres)})
	}
	a.health = healthuc.New(healthuc.DefaultTimeout, checks...)

	ok = true
	return a, nil
}

// newAnalyticsApp wires only what the analytics reports need: the lexicon, the search log and document counters.
func newAnalyticsApp(ctx context.Context) (*app, error) {
	lex, err := loadLexicon()
	if err != nil {
		return nil, err
	}
	a := &app{lexicon: lex}
	if err := a.openLogStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.SearchLog.Backend == config.SearchLogMemory {
		logger.Warn("In-memory search log is empty in a fresh process; reports will be empty")
	}
	return a, nil
}

// openLogStores opens postgres (when configured), the search log backend and the analytics service.
// a.lexicon must be set.
func (a *app) openLogStores(ctx context.Context) error {
	if cfg.Postgres.DSN != "" {
		pg, err := postgres.New(ctx, cfg.Postgres.DSN, postgres.PoolConfig{
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.postgres = pg
		a.closers = append(a.closers, func() { _ = pg.Close() })
		logger.Info("Connected to postgres")
	}

	switch cfg.SearchLog.Backend {
	case config.SearchLogPostgres:
		a.searchLog = a.postgres
	case config.SearchLogBadger:
		bs, err := dbbadger.Open(cfg.SearchLog.BadgerDir, cfg.SearchLog.BadgerInMemory, logger)
		if err != nil {
			return fmt.Errorf("open badger search log: %w", err)
		}
		a.searchLog = bs
		a.closers = append(a.closers, func() {
			if err := bs.Close(); err != nil {
				logger.Warn("Failed to close badger search log", zap.Error(err))
			}
		})
	default:
		a.searchLog = searchlogrepo.NewMemory(cfg.SearchLog.Capacity)
	}
	logger.Info("Search log ready", zap.String("backend", cfg.SearchLog.Backend))

	// Pass a nil interface (not a typed nil pointer) when document counters are absent.
	var docs analyticsuc.DocumentStats
	if a.postgres != nil {
		docs = a.postgres
	}
	a.analytics = analyticsuc.New(a.searchLog, docs, a.lexicon, analyticsuc.Config{
		NoisyThreshold: cfg.Analytics.NoisyThreshold,
		MinSearches:    cfg.Analytics.MinSearches,
		MaxDocuments:   cfg.Analytics.MaxDocuments,
		WindowDays:     cfg.Analytics.WindowDays,
	})
	return nil
}

func openRedis(ctx context.Context) (*dbredis.Store, error) {
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
	return store, nil
}

// loadLexicon returns the configured vocabulary, or the built-in table when no path is set.
func loadLexicon() (*lexicon.Holder, error) {
	if cfg.Lexicon.Path == "" {
		return lexicon.NewHolder(lexicon.Default()), nil
	}
	lex, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	logger.Info("Lexicon loaded", zap.String("path", cfg.Lexicon.Path), zap.Int("version", lex.Version()))
	return lexicon.NewHolder(lex), nil
}

// watchLexicon hot-reloads the lexicon file until ctx is done.
func watchLexicon(ctx context.Context, h *lexicon.Holder) {
	if cfg.Lexicon.Path == "" || !cfg.Lexicon.Watch {
		return
	}
	if err := h.Watch(ctx, cfg.Lexicon.Path, logger); err != nil {
		logger.Warn("Lexicon hot reload disabled", zap.Error(err))
	}
}

func retrievalRetry(c config.RetryConfig) resilience.Policy {
	rc := resilience.DefaultPolicy()
	rc.MaxAttempts = c.MaxAttempts
	rc.AttemptTimeout = time.Duration(c.AttemptTimeoutMs) * time.Millisecond
	rc.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	rc.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	return rc
}

func indexConfig() listing.IndexConfig {
	return listing.IndexConfig{
		Name:           cfg.Index.Name,
		Prefix:         cfg.Index.Prefix,
		Dimensions:     cfg.Embedding.Dimensions,
		Algorithm:      indexAlgorithm(cfg.Index.Algorithm),
		M:              cfg.Index.HNSWM,
		EFConstruction: cfg.Index.HNSWEFConstruct,
	}
}
