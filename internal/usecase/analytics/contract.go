package analytics

import (
	"context"
	"time"

	domanalytics "github.com/PonchoGAD/auto-search-mvp/internal/domain/analytics"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
)

// LogReader reads the search log. Implementations return snapshots and never block writers.
type LogReader interface {
	Entries(ctx context.Context, since time.Time) ([]searchlog.Entry, error)
	Recent(ctx context.Context, limit int) ([]searchlog.Entry, error)
}

// DocumentStats exposes the document pipeline's own counters.
type DocumentStats interface {
	SourceCounts(ctx context.Context) ([]domanalytics.SourceCount, error)
	BrandDocumentCounts(ctx context.Context) (map[string]int, error)
}
