package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/config"
	"github.com/PonchoGAD/auto-search-mvp/internal/db"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/metrics"
	"github.com/PonchoGAD/auto-search-mvp/internal/repository/embcache"
	openaiEmb "github.com/PonchoGAD/auto-search-mvp/internal/transport/openai"
	embeddinguc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/embedding"
)

// buildEmbedder assembles the decorator chain: OpenAI -> RateLimited -> Cached -> Instrumented -> Instruction
func buildEmbedder(ec config.EmbeddingConfig, store db.KVStore, logger *zap.Logger) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Timeout:    ec.Timeout(),
		Logger:     logger,
	})

	// Rate limited, inside the cache so only misses spend provider quota.
	var embedder domain.Embedder = base
	if ec.RateLimit.RPS > 0 {
		embedder = embeddinguc.NewRateLimitedEmbedder(base, ec.RateLimit.RPS, ec.RateLimit.Burst, ec.Provider, logger)
	}

	// Cached
	if ec.Cache.Enabled && store != nil {
		embedder = embcache.New(embedder, store, embcache.Options{
			Prefix:     ec.Cache.Prefix,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			TTL:        ec.Cache.TTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (metrics + usage)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger)

	// Instruction prefix (outermost, so the cache key includes it)
	if ec.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}

	return embedder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if err := domain.CheckHealth(ctx, h.embedder); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}
