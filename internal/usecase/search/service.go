// Package search composes interpretation, retrieval, scoring and diversification
// into one request/response cycle.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
	"github.com/PonchoGAD/auto-search-mvp/internal/logger"
	"github.com/PonchoGAD/auto-search-mvp/internal/metrics"
	"github.com/PonchoGAD/auto-search-mvp/internal/resilience"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/diversify"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/interpret"
)

// Defaults applied when Config fields are zero.
const (
	DefaultTopK       = 20
	DefaultMaxTopK    = 50
	DefaultLogTimeout = 2 * time.Second
	maxQueryRunes     = 500
	degradedEmbedding = "embedding_unavailable"
	degradedRateLimit = "rate_limited"
	degradedIndex     = "index_unavailable"
	degradedRetrieval = "retrieval_failed"
)

// Config tunes the orchestrator.
type Config struct {
	TopK               int
	MaxTopK            int
	DiversityThreshold int
	LogTimeout         time.Duration
	Retry              resilience.Policy
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = DefaultMaxTopK
	}
	if c.TopK > c.MaxTopK {
		c.TopK = c.MaxTopK
	}
	if c.LogTimeout <= 0 {
		c.LogTimeout = DefaultLogTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = resilience.DefaultPolicy()
	}
}

// Request is one search call.
type Request struct {
	Query         string
	IncludeAnswer bool
	TopK          int // 0 uses the configured default
}

// Debug is the per-request telemetry returned to clients.
type Debug struct {
	LatencyMS            int64  `json:"latency_ms"`
	VectorHits           int    `json:"vector_hits"`
	FinalResults         int    `json:"final_results"`
	QueryLanguage        string `json:"query_language"`
	EmptyResult          bool   `json:"empty_result"`
	RetrievalUnavailable bool   `json:"retrieval_unavailable,omitempty"`
	DegradedReason       string `json:"degraded_reason,omitempty"`
}

// Response is the assembled search outcome.
type Response struct {
	StructuredQuery query.StructuredQuery
	Results         []result.Result
	Sources         []diversify.SourceCount
	Debug           Debug
	Answer          *Answer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides log entry id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service is the search orchestrator. Stateless per request.
type Service struct {
	interp    Interpreter
	retriever Retriever
	scorer    Scorer
	log       SearchLog
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a search orchestrator.
func New(
	interp Interpreter, retriever Retriever, scorer Scorer, log SearchLog,
	cfg Config, logger *zap.Logger, opts ...Option,
) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		interp:    interp,
		retriever: retriever,
		scorer:    scorer,
		log:       log,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search runs interpret, retrieve, score and diversify, then appends one log entry.
// Retrieval failures degrade to an empty response; caller cancellation returns ctx.Err()
// and writes no entry.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	raw := strings.TrimSpace(req.Query)
	if raw == "" {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if len([]rune(raw)) > maxQueryRunes {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, fmt.Errorf("%w: query exceeds %d characters", domain.ErrValidation, maxQueryRunes)
	}

	start := s.now()
	log := logger.FromContext(ctx, s.logger)

	sq, residual := s.interp.Interpret(raw)
	lang := interpret.DetectLanguage(raw)
	topK := s.topK(req.TopK)
	text := embeddingText(residual, sq, raw)

	candidates, err := s.retrieve(ctx, text, sq, topK)
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeCanceled).Inc()
		return nil, fmt.Errorf("search canceled: %w", ctxErr)
	}

	debug := Debug{QueryLanguage: lang}
	if err != nil {
		debug.RetrievalUnavailable = true
		debug.DegradedReason = degradedReason(err)
		candidates = nil
		log.Warn("Retrieval unavailable, returning degraded response",
			zap.String("reason", debug.DegradedReason),
			zap.Error(err),
		)
	}

	scored := s.scorer.Score(candidates, sq)
	outcome := diversify.Diversify(scored, s.cfg.DiversityThreshold)

	latency := s.now().Sub(start)
	debug.LatencyMS = latency.Milliseconds()
	debug.VectorHits = len(candidates)
	debug.FinalResults = len(outcome.Results)
	debug.EmptyResult = len(outcome.Results) == 0

	resp := &Response{
		StructuredQuery: sq,
		Results:         outcome.Results,
		Sources:         outcome.Sources,
		Debug:           debug,
	}
	if req.IncludeAnswer {
		resp.Answer = BuildAnswer(sq, outcome.Results, lang)
	}

	s.appendLog(ctx, searchlog.Entry{
		ID:              s.newID(),
		RawQuery:        raw,
		StructuredQuery: sq,
		Timestamp:       start.UTC(),
		ResultCount:     len(outcome.Results),
		IsEmpty:         debug.EmptyResult,
		LatencyMS:       debug.LatencyMS,
		Language:        lang,
		Degraded:        debug.RetrievalUnavailable,
	})

	metrics.SearchRequestsTotal.WithLabelValues(outcomeLabel(debug)).Inc()
	metrics.SearchDuration.Observe(latency.Seconds())

	log.Debug("Search completed",
		zap.Int("vector_hits", debug.VectorHits),
		zap.Int("final_results", debug.FinalResults),
		zap.String("language", lang),
		zap.Int64("latency_ms", debug.LatencyMS),
	)

	return resp, nil
}

// Interpret exposes the interpreter for callers that only need the structured query.
func (s *Service) Interpret(raw string) (query.StructuredQuery, string) {
	return s.interp.Interpret(raw)
}

func (s *Service) retrieve(
	ctx context.Context, text string, sq query.StructuredQuery, topK int,
) ([]listing.Candidate, error) {
	policy := s.cfg.Retry
	// the limiter already waited out the caller's budget
	policy.Retryable = func(err error) bool { return !errors.Is(err, domain.ErrRateLimited) }
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		metrics.RetrievalRetriesTotal.Inc()
		logger.FromContext(ctx, s.logger).Warn("Retrying retrieval", zap.Int("attempt", attempt), zap.Error(err))
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}

	candidates, err := resilience.DoVal(ctx, policy, func(ctx context.Context) ([]listing.Candidate, error) {
		return s.retriever.Retrieve(ctx, text, sq, topK)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return candidates, nil
}

// appendLog writes the entry under a detached context so a client disconnect
// after retrieval still records the request.
func (s *Service) appendLog(ctx context.Context, e searchlog.Entry) {
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LogTimeout)
	defer cancel()

	if err := s.log.Append(logCtx, e); err != nil {
		metrics.SearchLogErrorsTotal.Inc()
		logger.FromContext(ctx, s.logger).Error("Failed to append search log entry",
			zap.String("entry_id", e.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) topK(requested int) int {
	if requested <= 0 {
		return s.cfg.TopK
	}
	return min(requested, s.cfg.MaxTopK)
}

// embeddingText picks the text to embed: residual, then structured fields, then the raw query.
func embeddingText(residual string, sq query.StructuredQuery, raw string) string {
	if t := strings.TrimSpace(residual); t != "" {
		return t
	}

	var parts []string
	for _, p := range []*string{sq.Brand, sq.Model, sq.Fuel, sq.Color, sq.Condition, sq.Region} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	parts = append(parts, sq.Keywords.Values()...)
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return raw
}

func degradedReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return degradedRateLimit
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return degradedEmbedding
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return degradedIndex
	default:
		return degradedRetrieval
	}
}

func outcomeLabel(d Debug) string {
	switch {
	case d.RetrievalUnavailable:
		return metrics.OutcomeDegraded
	case d.EmptyResult:
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeOK
	}
}
