// Package openai embeds search queries through an OpenAI-compatible API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/metrics"
)

// Error classes reported in the error_type metric label.
const (
	errCanceled          = "canceled"
	errTimeout           = "timeout"
	errRateLimit         = "rate_limit"
	errAuth              = "auth"
	errServer            = "server"
	errAPI               = "api_error"
	errEmptyResponse     = "empty_response"
	errDimensionMismatch = "dimension_mismatch"
	errInvalidVector     = "invalid_vector"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string // empty means api.openai.com
	Model      string
	Dimensions int // requested and enforced when > 0
	User       string
	Provider   string        // metric label, e.g. "openai" or "vllm"
	Timeout    time.Duration // per request; 0 relies on the caller's context
	Logger     *zap.Logger
}

// Embedder calls /embeddings for one query text at a time.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewEmbedder builds the client. No request is made until the first Embed.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Embed returns the query vector. Caller cancellation comes back as ctx.Err();
// every other failure wraps domain.ErrEmbeddingProviderError.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		// newlines degrade some embedding models and carry no meaning in a query
		Input:          []string{strings.Join(strings.Fields(text), " ")},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	callCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(callCtx, req)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			e.fail(errCanceled)
			return domain.EmbeddingResult{}, fmt.Errorf("create embeddings: %w", ctx.Err())
		}
		class := classify(callCtx, err)
		e.fail(class)
		e.logger.Warn("Embedding provider call failed",
			zap.String("provider", e.provider),
			zap.String("error_type", class),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, describe(err)
	}

	vec, err := e.vector(resp)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	e.succeed(elapsed, resp.Usage)
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// vector extracts and sanity-checks the single embedding in resp.
func (e *Embedder) vector(resp openai.EmbeddingResponse) ([]float32, error) {
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		e.fail(errEmptyResponse)
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		e.fail(errDimensionMismatch)
		return nil, fmt.Errorf("embedding has %d dimensions, index expects %d: %w",
			len(vec), e.dimensions, domain.ErrEmbeddingProviderError)
	}
	for i, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			e.fail(errInvalidVector)
			return nil, fmt.Errorf("embedding component %d is not finite: %w", i, domain.ErrEmbeddingProviderError)
		}
	}
	return vec, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return ctx, func() {}
}

func (e *Embedder) succeed(elapsed time.Duration, usage openai.Usage) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, metrics.StatusSuccess).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(elapsed.Seconds())
	if usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(usage.TotalTokens))
	}
}

func (e *Embedder) fail(class string) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, metrics.StatusError).Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, class).Inc()
}

// classify maps a failed call onto an error_type label.
func classify(callCtx context.Context, err error) string {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return errTimeout
	}
	switch status := statusCode(err); {
	case status == http.StatusTooManyRequests:
		return errRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errAuth
	case status >= http.StatusInternalServerError:
		return errServer
	default:
		return errAPI
	}
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// describe turns a client error into a readable message wrapped in
// domain.ErrEmbeddingProviderError.
func describe(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = strings.TrimSpace(string(reqErr.Body))
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, wrap)
}

// extractDetail reads the "detail" field some OpenAI-compatible gateways
// (TEI, FastAPI-based proxies) return instead of an error object.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
