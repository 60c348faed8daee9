package search

import (
	"context"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
)

// Interpreter turns a raw query into a structured query and residual text.
type Interpreter interface {
	Interpret(raw string) (query.StructuredQuery, string)
}

// Retriever fetches candidates for the embedded text.
type Retriever interface {
	Retrieve(ctx context.Context, text string, q query.StructuredQuery, topK int) ([]listing.Candidate, error)
}

// Scorer ranks and explains candidates.
type Scorer interface {
	Score(candidates []listing.Candidate, q query.StructuredQuery) []result.Result
}

// SearchLog appends one entry per completed search.
type SearchLog interface {
	Append(ctx context.Context, e searchlog.Entry) error
}
