// Package diversify flags sources that dominate a result set. It never drops or reorders results.
package diversify

import (
	"sort"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
)

// DefaultThreshold is the per-source result count at which a source becomes dominant.
const DefaultThreshold = 10

// SourceCount is the number of results one source contributed.
type SourceCount struct {
	Name     string `json:"name"`
	Count    int    `json:"result_count"`
	Dominant bool   `json:"dominant"`
}

// Outcome is the flagged result list plus per-source counts.
type Outcome struct {
	Results []result.Result
	Sources []SourceCount
}

// Diversify marks results from sources contributing at least threshold items.
// A threshold <= 0 means DefaultThreshold. Sources are ordered by count desc, then name.
func Diversify(results []result.Result, threshold int) Outcome {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	counts := make(map[string]int)
	for _, r := range results {
		counts[r.SourceName()]++
	}

	out := Outcome{
		Results: make([]result.Result, len(results)),
		Sources: make([]SourceCount, 0, len(counts)),
	}
	for i, r := range results {
		out.Results[i] = r.WithDominant(counts[r.SourceName()] >= threshold)
	}
	for name, n := range counts {
		out.Sources = append(out.Sources, SourceCount{Name: name, Count: n, Dominant: n >= threshold})
	}
	sort.Slice(out.Sources, func(i, j int) bool {
		if out.Sources[i].Count != out.Sources[j].Count {
			return out.Sources[i].Count > out.Sources[j].Count
		}
		return out.Sources[i].Name < out.Sources[j].Name
	})
	return out
}
