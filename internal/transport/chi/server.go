package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	domanalytics "github.com/PonchoGAD/auto-search-mvp/internal/domain/analytics"
	healthuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/health"
	searchuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/search"
)

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (*searchuc.Response, error)
}

// Analytics serves the read-only analytics reports.
type Analytics interface {
	RecentSearches(ctx context.Context, limit int) ([]domanalytics.RecentSearch, error)
	TopQueries(ctx context.Context, limit int) ([]domanalytics.QueryCount, error)
	EmptyQueries(ctx context.Context, limit int) ([]domanalytics.QueryCount, error)
	TopBrands(ctx context.Context, limit int) ([]domanalytics.BrandCount, error)
	SourceNoise(ctx context.Context) ([]domanalytics.SourceQuality, error)
	BrandGap(ctx context.Context, limit int) ([]domanalytics.BrandGap, error)
	NoResultsRate(ctx context.Context) (domanalytics.NoResultsRate, error)
	DataSignals(ctx context.Context) (domanalytics.DataSignals, error)
}

// HealthReporter produces liveness and readiness reports.
type HealthReporter interface {
	Live() healthuc.Report
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API.
type Server struct {
	search        Searcher
	analytics     Analytics
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, analytics Analytics, health HealthReporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		analytics:     analytics,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.ReadyCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/search/history", s.RecentSearches)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/recent-searches", s.RecentSearches)
			r.Get("/top-queries", s.TopQueries)
			r.Get("/empty-queries", s.EmptyQueries)
			r.Get("/top-brands", s.TopBrands)
			r.Get("/source-noise", s.SourceNoise)
			r.Get("/brand-gap", s.BrandGap)
			r.Get("/no-results-rate", s.NoResultsRate)
			r.Get("/data-signals", s.DataSignals)
		})
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "top_k must not be negative")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, searchuc.Request{
		Query:         req.Query,
		IncludeAnswer: req.IncludeAnswer,
		TopK:          req.TopK,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponseFromUsecase(resp))
}

// RecentSearches handles GET /api/v1/analytics/recent-searches and /api/v1/search/history.
func (s *Server) RecentSearches(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	items, err := s.analytics.RecentSearches(r.Context(), limit)
	writeList(s, w, items, err)
}

// TopQueries handles GET /api/v1/analytics/top-queries.
func (s *Server) TopQueries(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	items, err := s.analytics.TopQueries(r.Context(), limit)
	writeList(s, w, items, err)
}

// EmptyQueries handles GET /api/v1/analytics/empty-queries.
func (s *Server) EmptyQueries(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	items, err := s.analytics.EmptyQueries(r.Context(), limit)
	writeList(s, w, items, err)
}

// TopBrands handles GET /api/v1/analytics/top-brands.
func (s *Server) TopBrands(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	items, err := s.analytics.TopBrands(r.Context(), limit)
	writeList(s, w, items, err)
}

// SourceNoise handles GET /api/v1/analytics/source-noise.
func (s *Server) SourceNoise(w http.ResponseWriter, r *http.Request) {
	items, err := s.analytics.SourceNoise(r.Context())
	writeList(s, w, items, err)
}

// BrandGap handles GET /api/v1/analytics/brand-gap.
func (s *Server) BrandGap(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	items, err := s.analytics.BrandGap(r.Context(), limit)
	writeList(s, w, items, err)
}

// NoResultsRate handles GET /api/v1/analytics/no-results-rate.
func (s *Server) NoResultsRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.analytics.NoResultsRate(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// DataSignals handles GET /api/v1/analytics/data-signals.
func (s *Server) DataSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := s.analytics.DataSignals(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	signals.BrandGaps = orEmpty(signals.BrandGaps)
	signals.NoisySources = orEmpty(signals.NoisySources)
	writeJSON(w, http.StatusOK, signals)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, s.health.Live())
}

// ReadyCheck handles GET /ready. A failing critical dependency answers 503.
func (s *Server) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, s.health.Check(r.Context()))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeHealth(w http.ResponseWriter, report healthuc.Report) {
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if !report.Ready() {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
	}
}

// parseLimit reads the optional limit query parameter. Range clamping is the usecase's job.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return 0, false
	}
	return limit, true
}

// writeList answers with a JSON array, never null.
func writeList[T any](s *Server, w http.ResponseWriter, items []T, err error) {
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
