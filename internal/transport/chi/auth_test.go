package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(keys []string, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	BearerAuthMiddleware(keys)(okHandler()).ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	for _, keys := range [][]string{nil, {}, {"", ""}} {
		if rr := serveAuth(keys, http.MethodPost, "/api/v1/search", ""); rr.Code != http.StatusOK {
			t.Errorf("keys %q: got %d, want %d", keys, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		wantMessage   string
	}{
		{"missing header", "", "missing authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "authorization header must use Bearer scheme"},
		{"no token", "Bearer", "authorization header must use Bearer scheme"},
		{"blank token", "Bearer   ", "empty bearer token"},
		{"wrong key", "Bearer wrong-key", "invalid api key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAuth([]string{"secret"}, http.MethodPost, "/api/v1/search", tt.authorization)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("got %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate challenge")
			}

			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != CodeUnauthorized || errResp.Message != tt.wantMessage {
				t.Errorf("error = %+v, want %s %q", errResp, CodeUnauthorized, tt.wantMessage)
			}
		})
	}
}

func TestAuthMiddleware_Accepts(t *testing.T) {
	keys := []string{"key1", "key2"}
	for _, authorization := range []string{"Bearer key1", "Bearer key2", "bearer key1", "BEARER key2"} {
		if rr := serveAuth(keys, http.MethodPost, "/api/v1/search", authorization); rr.Code != http.StatusOK {
			t.Errorf("%q: got %d, want %d", authorization, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		if rr := serveAuth([]string{"secret"}, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_PreflightPassesThrough(t *testing.T) {
	if rr := serveAuth([]string{"secret"}, http.MethodOptions, "/api/v1/search", ""); rr.Code != http.StatusOK {
		t.Errorf("preflight: got %d, want %d", rr.Code, http.StatusOK)
	}
}
