// Package searchlog defines the append-only record written once per search request.
package searchlog

import (
	"time"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
)

// Entry is one completed search request. Never mutated after append.
type Entry struct {
	ID              string                `json:"id"`
	RawQuery        string                `json:"raw_query"`
	StructuredQuery query.StructuredQuery `json:"structured_query"`
	Timestamp       time.Time             `json:"timestamp"`
	ResultCount     int                   `json:"result_count"`
	IsEmpty         bool                  `json:"is_empty"`
	LatencyMS       int64                 `json:"latency_ms"`
	Language        string                `json:"language"`
	Degraded        bool                  `json:"degraded"`
}
