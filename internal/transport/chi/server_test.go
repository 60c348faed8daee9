package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	domanalytics "github.com/PonchoGAD/auto-search-mvp/internal/domain/analytics"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/match"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/diversify"
	healthuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/health"
	searchuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	resp   *searchuc.Response
	err    error
	tokens int
	got    searchuc.Request
}

func (m *mockSearcher) Search(ctx context.Context, req searchuc.Request) (*searchuc.Response, error) {
	m.got = req
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.resp, m.err
}

type mockAnalytics struct {
	err       error
	lastLimit int
	recent    []domanalytics.RecentSearch
	queries   []domanalytics.QueryCount
	signals   domanalytics.DataSignals
}

func (m *mockAnalytics) RecentSearches(_ context.Context, limit int) ([]domanalytics.RecentSearch, error) {
	m.lastLimit = limit
	return m.recent, m.err
}

func (m *mockAnalytics) TopQueries(_ context.Context, limit int) ([]domanalytics.QueryCount, error) {
	m.lastLimit = limit
	return m.queries, m.err
}

func (m *mockAnalytics) EmptyQueries(_ context.Context, limit int) ([]domanalytics.QueryCount, error) {
	m.lastLimit = limit
	return nil, m.err
}

func (m *mockAnalytics) TopBrands(_ context.Context, limit int) ([]domanalytics.BrandCount, error) {
	m.lastLimit = limit
	return nil, m.err
}

func (m *mockAnalytics) SourceNoise(_ context.Context) ([]domanalytics.SourceQuality, error) {
	return nil, m.err
}

func (m *mockAnalytics) BrandGap(_ context.Context, limit int) ([]domanalytics.BrandGap, error) {
	m.lastLimit = limit
	return nil, m.err
}

func (m *mockAnalytics) NoResultsRate(_ context.Context) (domanalytics.NoResultsRate, error) {
	return domanalytics.NoResultsRate{Total: 4, Empty: 1, Rate: 0.25}, m.err
}

func (m *mockAnalytics) DataSignals(_ context.Context) (domanalytics.DataSignals, error) {
	return m.signals, m.err
}

type mockHealth struct {
	ready healthuc.Report
}

func (m *mockHealth) Live() healthuc.Report {
	return healthuc.Report{Status: healthuc.Healthy}
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.ready }

// --- Helpers ---

func newTestRouter(s Searcher, a Analytics, h HealthReporter) http.Handler {
	r := chi.NewRouter()
	NewServer(s, a, h, nil).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func sampleResponse() *searchuc.Response {
	year := int64(2019)
	c := listing.Candidate{
		Document: listing.Document{
			Brand:      "BMW",
			Model:      "X5",
			Year:       &year,
			SourceName: "drom",
			SourceURL:  "https://drom.example/1",
			Embedding:  []float32{0.1, 0.2},
		},
		Similarity: 0.8,
	}
	return &searchuc.Response{
		StructuredQuery: query.StructuredQuery{Brand: query.Str("BMW")},
		Results:         []result.Result{result.New(c, 0.9, match.NewSet(match.Brand, match.Price))},
		Sources:         []diversify.SourceCount{{Name: "drom", Count: 1}},
		Debug:           searchuc.Debug{VectorHits: 3, FinalResults: 1, QueryLanguage: "ru"},
	}
}

// --- Search ---

func TestSearch_OK(t *testing.T) {
	searcher := &mockSearcher{resp: sampleResponse(), tokens: 7}
	h := newTestRouter(searcher, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"BMW X5","include_answer":true,"top_k":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "7" {
		t.Errorf("X-Embedding-Tokens: got %q, want 7", got)
	}
	if searcher.got.Query != "BMW X5" || !searcher.got.IncludeAnswer || searcher.got.TopK != 5 {
		t.Errorf("request not forwarded: %+v", searcher.got)
	}

	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sq, ok := body["structuredQuery"].(map[string]any)
	if !ok || sq["brand"] != "BMW" {
		t.Errorf("structuredQuery: got %v", body["structuredQuery"])
	}
	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results: got %v", body["results"])
	}
	item := results[0].(map[string]any)
	if item["why_match"] != "brand, price" {
		t.Errorf("why_match: got %v", item["why_match"])
	}
	if item["source_url"] != "https://drom.example/1" || item["source_name"] != "drom" {
		t.Errorf("source fields: got %v", item)
	}
	if item["year"] != float64(2019) {
		t.Errorf("year: got %v", item["year"])
	}
	if _, present := item["price"]; present {
		t.Error("absent price must be omitted")
	}
	if _, present := item["embedding"]; present {
		t.Error("embedding must never be exposed")
	}
	if _, present := body["answer"]; present {
		t.Error("nil answer must be omitted")
	}
	debug := body["debug"].(map[string]any)
	if debug["vector_hits"] != float64(3) || debug["query_language"] != "ru" {
		t.Errorf("debug: got %v", debug)
	}
}

func TestSearch_EmptyResultsAreArrays(t *testing.T) {
	searcher := &mockSearcher{resp: &searchuc.Response{Debug: searchuc.Debug{EmptyResult: true}}}
	h := newTestRouter(searcher, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"nothing"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"results":[]`) || !strings.Contains(body, `"sources":[]`) {
		t.Errorf("expected empty arrays, got %s", body)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("no embedding header expected without usage")
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/api/v1/search", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if got := decodeError(t, rr).Code; got != CodeBadRequest {
		t.Errorf("code: got %s, want %s", got, CodeBadRequest)
	}
}

func TestSearch_NegativeTopK(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"bmw","top_k":-1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"validation", fmt.Errorf("%w: query is required", domain.ErrValidation), http.StatusBadRequest, CodeValidationFailed},
		{"rate limited", fmt.Errorf("embed: %w", domain.ErrRateLimited), http.StatusTooManyRequests, CodeRateLimited},
		{"provider", fmt.Errorf("embed: %w", domain.ErrEmbeddingProviderError), http.StatusBadGateway, CodeEmbeddingProviderError},
		{"retrieval", domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeRetrievalUnavailable},
		{"store", fmt.Errorf("%w: log: boom", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{"canceled", fmt.Errorf("search canceled: %w", context.Canceled), statusClientClosedRequest, CodeClientClosed},
		{"unknown", errors.New("redis: connection refused at 10.0.0.1"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockSearcher{err: tt.err}, &mockAnalytics{}, &mockHealth{})

			rr := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"bmw"}`)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.code {
				t.Errorf("code: got %s, want %s", resp.Code, tt.code)
			}
			if strings.Contains(resp.Message, "10.0.0.1") {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestSearch_ValidationMessageIsDescriptive(t *testing.T) {
	err := fmt.Errorf("%w: query is required", domain.ErrValidation)
	h := newTestRouter(&mockSearcher{err: err}, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"  "}`)
	if got := decodeError(t, rr).Message; !strings.Contains(got, "query is required") {
		t.Errorf("message: got %q", got)
	}
}

// --- Analytics ---

func TestAnalytics_ListsNeverNull(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{})

	paths := []string{
		"/api/v1/analytics/recent-searches",
		"/api/v1/analytics/top-queries",
		"/api/v1/analytics/empty-queries",
		"/api/v1/analytics/top-brands",
		"/api/v1/analytics/source-noise",
		"/api/v1/analytics/brand-gap",
		"/api/v1/search/history",
	}
	for _, path := range paths {
		rr := do(t, h, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rr.Code)
			continue
		}
		if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
			t.Errorf("%s: got %s, want []", path, got)
		}
	}
}

func TestAnalytics_LimitForwarded(t *testing.T) {
	a := &mockAnalytics{queries: []domanalytics.QueryCount{
		{Query: "bmw x5", Count: 3, LastSeen: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}}
	h := newTestRouter(&mockSearcher{}, a, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/api/v1/analytics/top-queries?limit=7", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if a.lastLimit != 7 {
		t.Errorf("limit: got %d, want 7", a.lastLimit)
	}

	var items []domanalytics.QueryCount
	if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Query != "bmw x5" || items[0].Count != 3 {
		t.Errorf("items: got %+v", items)
	}
}

func TestAnalytics_MissingLimitIsZero(t *testing.T) {
	a := &mockAnalytics{lastLimit: -1}
	h := newTestRouter(&mockSearcher{}, a, &mockHealth{})

	do(t, h, http.MethodGet, "/api/v1/search/history", "")
	if a.lastLimit != 0 {
		t.Errorf("limit: got %d, want 0", a.lastLimit)
	}
}

func TestAnalytics_InvalidLimit(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/api/v1/analytics/top-brands?limit=ten", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if got := decodeError(t, rr).Code; got != CodeBadRequest {
		t.Errorf("code: got %s", got)
	}
}

func TestAnalytics_StoreUnavailable(t *testing.T) {
	a := &mockAnalytics{err: fmt.Errorf("%w: read search log: timeout", domain.ErrStoreUnavailable)}
	h := newTestRouter(&mockSearcher{}, a, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/api/v1/analytics/no-results-rate", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}
	if got := decodeError(t, rr).Code; got != CodeStoreUnavailable {
		t.Errorf("code: got %s", got)
	}
}

func TestAnalytics_NoResultsRate(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/api/v1/analytics/no-results-rate", "")
	var rate domanalytics.NoResultsRate
	if err := json.NewDecoder(rr.Body).Decode(&rate); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate.Total != 4 || rate.Empty != 1 || rate.Rate != 0.25 {
		t.Errorf("rate: got %+v", rate)
	}
}

func TestAnalytics_DataSignalsEmptyArrays(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{})

	rr := do(t, h, http.MethodGet, "/api/v1/analytics/data-signals", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"brand_gap":[]`) || !strings.Contains(body, `"noisy_sources":[]`) {
		t.Errorf("expected empty arrays, got %s", body)
	}
}

// --- Health ---

func TestHealth_AlwaysLive(t *testing.T) {
	h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{
		ready: healthuc.Report{Status: healthuc.Unhealthy},
	})

	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		status int
	}{
		{"healthy", healthuc.Report{Status: healthuc.Healthy}, http.StatusOK},
		{"degraded", healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{"embedding": healthuc.CheckError},
		}, http.StatusOK},
		{"unhealthy", healthuc.Report{
			Status: healthuc.Unhealthy,
			Checks: map[string]healthuc.CheckResult{"vector_index": healthuc.CheckError},
		}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockSearcher{}, &mockAnalytics{}, &mockHealth{ready: tt.report})

			rr := do(t, h, http.MethodGet, "/ready", "")
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.report.Status) {
				t.Errorf("status field: got %q", resp.Status)
			}
		})
	}
}
