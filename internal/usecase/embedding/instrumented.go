package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/logger"
)

// InstrumentedEmbedder logs every query embedding and charges its tokens to
// the request's usage collector. Provider-level metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, log *zap.Logger) *InstrumentedEmbedder {
	if log == nil {
		log = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   log,
	}
}

// Embed delegates to the inner embedder. Query text is never logged, only its length.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)

	log := logger.FromContext(ctx, p.logger).With(
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("text_runes", utf8.RuneCountInString(text)),
	)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("Embedding abandoned by caller", zap.Error(err))
		} else {
			log.Error("Embedding request failed", zap.Error(err))
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	log.Debug("Embedding request completed",
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck forwards to the inner embedder.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	return domain.CheckHealth(ctx, p.inner)
}
