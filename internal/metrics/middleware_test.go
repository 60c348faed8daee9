package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/v1/analytics/{report}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/v1/analytics/top-queries", "/api/v1/analytics/top-brands"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/analytics/{report}", "200"))
	if got < 2 {
		t.Errorf("expected both requests under one route label, got %f", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadRequest)
			w.WriteHeader(http.StatusInternalServerError) // ignored after the first call
			return
		}
		_, _ = w.Write([]byte("{}"))
	})

	tests := []struct {
		target string
		status string
	}{
		{"/api/v1/search", "200"},
		{"/api/v1/search?fail=1", "400"},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/v1/search", tc.status))
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tc.target, http.NoBody))
			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/v1/search", tc.status))
			if after-before != 1 {
				t.Errorf("expected one request with status %s, got delta %f", tc.status, after-before)
			}
		})
	}
}

func TestMiddleware_UnroutedRequests(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", http.NoBody))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))

	if after-before != 1 {
		t.Errorf("expected unrouted request under %q, got delta %f", unmatchedRoute, after-before)
	}
	if got := testutil.ToFloat64(httpRequestsInFlight); got != 0 {
		t.Errorf("requests_in_flight = %f after completion, want 0", got)
	}
}

func TestRegisterSearchMetrics_Idempotent(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()

	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues(OutcomeEmpty))
	SearchRequestsTotal.WithLabelValues(OutcomeEmpty).Inc()
	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues(OutcomeEmpty)); got != before+1 {
		t.Errorf("search_requests_total{outcome=empty} = %f, want %f", got, before+1)
	}
}
