package retrieve

import (
	"context"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/filter"
)

// Index is the vector index consumer interface.
type Index interface {
	Nearest(ctx context.Context, vector []float32, filters filter.Expression, k int) ([]listing.Candidate, error)
}
