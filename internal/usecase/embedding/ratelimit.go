package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/metrics"
)

// RateLimitedEmbedder caps outbound embedding calls with a token bucket.
// A caller waits for a token; if its deadline cannot be met the call fails with domain.ErrRateLimited.
type RateLimitedEmbedder struct {
	inner    domain.Embedder
	limiter  *rate.Limiter
	provider string
	logger   *zap.Logger
}

// NewRateLimitedEmbedder allows rps requests per second with the given burst. rps <= 0 disables limiting.
func NewRateLimitedEmbedder(
	inner domain.Embedder, rps float64, burst int, provider string, logger *zap.Logger,
) *RateLimitedEmbedder {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		inner:    inner,
		limiter:  rate.NewLimiter(limit, burst),
		provider: provider,
		logger:   logger,
	}
}

// Embed waits for a token and delegates to the inner embedder.
func (e *RateLimitedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		metrics.EmbeddingRateLimitedTotal.WithLabelValues(e.provider).Inc()
		e.logger.Warn("Embedding rate limited", zap.String("provider", e.provider), zap.Error(err))
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.EmbeddingResult{}, fmt.Errorf("wait for embedding slot: %w", ctx.Err())
		}
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("rate limited embed: %w", err)
	}
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (e *RateLimitedEmbedder) HealthCheck(ctx context.Context) error {
	return domain.CheckHealth(ctx, e.inner)
}
