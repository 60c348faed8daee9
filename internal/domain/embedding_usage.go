package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage accumulates the tokens one search spent on embeddings.
// Transports attach it to the request context and report the total back
// to the caller (X-Embedding-Tokens for HTTP).
type EmbeddingUsage struct {
	mu          sync.Mutex
	TotalTokens int
	// Used is set once the embedding chain ran, even when a cache hit cost nothing.
	Used bool
}

// NewContextWithUsage attaches a fresh usage collector to ctx.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records n tokens. Retries may call it from several attempts;
// a nil receiver does nothing.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.TotalTokens += n
	u.Used = true
	u.mu.Unlock()
}

// Tokens returns the running total.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.TotalTokens
}
