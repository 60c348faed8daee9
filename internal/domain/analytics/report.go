// Package analytics holds the read-side report snapshots built from search history.
package analytics

import "time"

// QueryCount is a normalized query and how often it was searched.
type QueryCount struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// BrandCount is search demand for one brand.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// NoResultsRate is the share of searches that returned nothing.
type NoResultsRate struct {
	Total int     `json:"total_searches"`
	Empty int     `json:"empty_searches"`
	Rate  float64 `json:"rate"`
}

// SourceCount holds the document pipeline counters for one source.
type SourceCount struct {
	Source     string
	Raw        int
	Normalized int
}

// SourceQuality is the normalized/raw survival ratio of one source.
type SourceQuality struct {
	Source          string  `json:"source"`
	RawCount        int     `json:"raw_count"`
	NormalizedCount int     `json:"normalized_count"`
	QualityRatio    float64 `json:"quality_ratio"`
	Noisy           bool    `json:"noisy"`
}

// BrandGap is a brand with search demand but little or no inventory.
type BrandGap struct {
	Brand     string `json:"brand"`
	Searches  int    `json:"searches"`
	Documents int    `json:"documents"`
}

// RecentSearch is a single search history row.
type RecentSearch struct {
	Query       string    `json:"query"`
	Brand       string    `json:"brand,omitempty"`
	ResultCount int       `json:"result_count"`
	IsEmpty     bool      `json:"is_empty"`
	LatencyMS   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// DataSignals bundles the demand/quality signals into one payload.
type DataSignals struct {
	NoResultsRate NoResultsRate   `json:"no_results_rate"`
	BrandGaps     []BrandGap      `json:"brand_gap"`
	NoisySources  []SourceQuality `json:"noisy_sources"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
