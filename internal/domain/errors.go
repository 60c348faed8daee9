package domain

import "errors"

var (
	// ErrValidation signals a malformed or empty request rejected before the core runs.
	ErrValidation = errors.New("validation failed")
	// ErrRetrievalUnavailable signals that the vector index could not be reached.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a local rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable signals that a search log or document store failed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
