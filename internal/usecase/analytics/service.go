// Package analytics derives demand and quality reports from the search log
// and the document pipeline counters. It never writes.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	domanalytics "github.com/PonchoGAD/auto-search-mvp/internal/domain/analytics"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

// Defaults applied when Config fields are zero.
const (
	DefaultLimit          = 10
	MaxLimit              = 50
	MaxRecentLimit        = 20
	DefaultNoisyThreshold = 0.5
	DefaultMinSearches    = 3
	signalsBrandGapLimit  = 10
)

// Config tunes report thresholds.
type Config struct {
	NoisyThreshold float64 // quality ratio below which a source is noisy
	MinSearches    int     // brand gap: minimum searches for a brand
	MaxDocuments   int     // brand gap: maximum documents still counted as a gap
	WindowDays     int     // 0 scans the whole log
}

func (c *Config) applyDefaults() {
	if c.NoisyThreshold <= 0 {
		c.NoisyThreshold = DefaultNoisyThreshold
	}
	if c.MinSearches <= 0 {
		c.MinSearches = DefaultMinSearches
	}
	if c.MaxDocuments < 0 {
		c.MaxDocuments = 0
	}
	if c.WindowDays < 0 {
		c.WindowDays = 0
	}
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service computes analytics reports on demand.
type Service struct {
	log  LogReader
	docs DocumentStats
	lex  lexicon.Provider
	cfg  Config
	now  func() time.Time
}

// New creates an analytics service. docs may be nil when no document store is configured.
// Brand spellings on both the search and the document side are resolved through lex.
func New(log LogReader, docs DocumentStats, lex lexicon.Provider, cfg Config, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{log: log, docs: docs, lex: lex, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TopQueries groups the log by normalized query text.
func (s *Service) TopQueries(ctx context.Context, limit int) ([]domanalytics.QueryCount, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return groupQueries(entries, clampLimit(limit, MaxLimit), false), nil
}

// EmptyQueries groups the log by normalized query text, counting only empty searches.
func (s *Service) EmptyQueries(ctx context.Context, limit int) ([]domanalytics.QueryCount, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return groupQueries(entries, clampLimit(limit, MaxLimit), true), nil
}

// TopBrands counts searches per structured brand.
func (s *Service) TopBrands(ctx context.Context, limit int) ([]domanalytics.BrandCount, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}

	out := brandDemand(entries, s.lex.Lexicon())
	if n := clampLimit(limit, MaxLimit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// NoResultsRate is empty/total over the scanned log. 0/0 is 0.
func (s *Service) NoResultsRate(ctx context.Context) (domanalytics.NoResultsRate, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return domanalytics.NoResultsRate{}, err
	}

	r := domanalytics.NoResultsRate{Total: len(entries)}
	for _, e := range entries {
		if e.IsEmpty {
			r.Empty++
		}
	}
	if r.Total > 0 {
		r.Rate = round3(float64(r.Empty) / float64(r.Total))
	}
	return r, nil
}

// SourceNoise reports every source's normalized/raw ratio, worst first.
func (s *Service) SourceNoise(ctx context.Context) ([]domanalytics.SourceQuality, error) {
	out := []domanalytics.SourceQuality{}
	if s.docs == nil {
		return out, nil
	}

	counts, err := s.docs.SourceCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: source counts: %w", domain.ErrStoreUnavailable, err)
	}

	for _, c := range counts {
		q := domanalytics.SourceQuality{
			Source:          c.Source,
			RawCount:        c.Raw,
			NormalizedCount: c.Normalized,
		}
		if q.Source == "" {
			q.Source = "unknown"
		}
		if c.Raw > 0 {
			q.QualityRatio = round3(float64(c.Normalized) / float64(c.Raw))
			q.Noisy = q.QualityRatio < s.cfg.NoisyThreshold
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityRatio != out[j].QualityRatio {
			return out[i].QualityRatio < out[j].QualityRatio
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}

// BrandGap lists brands with search demand and little or no inventory.
func (s *Service) BrandGap(ctx context.Context, limit int) ([]domanalytics.BrandGap, error) {
	out := []domanalytics.BrandGap{}
	if s.docs == nil {
		return out, nil
	}

	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	docCounts, err := s.docs.BrandDocumentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: brand document counts: %w", domain.ErrStoreUnavailable, err)
	}

	lex := s.lex.Lexicon()
	stocked := make(map[string]int, len(docCounts))
	for b, n := range docCounts {
		stocked[lex.CanonicalBrand(b)] += n
	}

	for _, d := range brandDemand(entries, lex) {
		if d.Count < s.cfg.MinSearches {
			continue
		}
		docs := stocked[lex.CanonicalBrand(d.Brand)]
		if docs > s.cfg.MaxDocuments {
			continue
		}
		out = append(out, domanalytics.BrandGap{Brand: d.Brand, Searches: d.Count, Documents: docs})
	}
	if n := clampLimit(limit, MaxLimit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// RecentSearches returns the newest log entries, newest first.
func (s *Service) RecentSearches(ctx context.Context, limit int) ([]domanalytics.RecentSearch, error) {
	entries, err := s.log.Recent(ctx, clampLimit(limit, MaxRecentLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: recent searches: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domanalytics.RecentSearch, 0, len(entries))
	for _, e := range entries {
		out = append(out, domanalytics.RecentSearch{
			Query:       e.RawQuery,
			Brand:       e.StructuredQuery.BrandName(),
			ResultCount: e.ResultCount,
			IsEmpty:     e.IsEmpty,
			LatencyMS:   e.LatencyMS,
			Timestamp:   e.Timestamp,
		})
	}
	return out, nil
}

// DataSignals computes the rate, brand gap and noisy sources concurrently.
func (s *Service) DataSignals(ctx context.Context) (domanalytics.DataSignals, error) {
	var (
		rate  domanalytics.NoResultsRate
		gaps  []domanalytics.BrandGap
		noise []domanalytics.SourceQuality
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rate, err = s.NoResultsRate(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		gaps, err = s.BrandGap(gctx, signalsBrandGapLimit)
		return err
	})
	g.Go(func() error {
		var err error
		noise, err = s.SourceNoise(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domanalytics.DataSignals{}, err //nolint:wrapcheck // already wrapped by the report
	}

	noisy := []domanalytics.SourceQuality{}
	for _, q := range noise {
		if q.Noisy {
			noisy = append(noisy, q)
		}
	}

	return domanalytics.DataSignals{
		NoResultsRate: rate,
		BrandGaps:     gaps,
		NoisySources:  noisy,
		GeneratedAt:   s.now().UTC(),
	}, nil
}

func (s *Service) entries(ctx context.Context) ([]searchlog.Entry, error) {
	var since time.Time
	if s.cfg.WindowDays > 0 {
		since = s.now().AddDate(0, 0, -s.cfg.WindowDays)
	}
	entries, err := s.log.Entries(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: read search log: %w", domain.ErrStoreUnavailable, err)
	}
	return entries, nil
}

func groupQueries(entries []searchlog.Entry, limit int, onlyEmpty bool) []domanalytics.QueryCount {
	idx := make(map[string]int)
	out := []domanalytics.QueryCount{}
	for _, e := range entries {
		if onlyEmpty && !e.IsEmpty {
			continue
		}
		key := lexicon.Fold(e.RawQuery)
		if key == "" {
			continue
		}
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, domanalytics.QueryCount{Query: key})
		}
		out[i].Count++
		if e.Timestamp.After(out[i].LastSeen) {
			out[i].LastSeen = e.Timestamp
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// brandDemand counts entries per canonical brand, by count desc then brand name.
// Each brand is reported under its most frequent logged spelling.
func brandDemand(entries []searchlog.Entry, lex *lexicon.Lexicon) []domanalytics.BrandCount {
	counts := make(map[string]int)
	spellings := make(map[string]map[string]int)
	for _, e := range entries {
		b := e.StructuredQuery.BrandName()
		if b == "" {
			continue
		}
		key := lex.CanonicalBrand(b)
		counts[key]++
		if spellings[key] == nil {
			spellings[key] = make(map[string]int)
		}
		spellings[key][b]++
	}

	out := make([]domanalytics.BrandCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, domanalytics.BrandCount{Brand: mostFrequent(spellings[key]), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Brand < out[j].Brand
	})
	return out
}

func mostFrequent(spellings map[string]int) string {
	var best string
	for s, n := range spellings {
		if best == "" || n > spellings[best] || (n == spellings[best] && s < best) {
			best = s
		}
	}
	return best
}

// clampLimit maps limit into [1, upper]; zero or negative means DefaultLimit.
func clampLimit(limit, upper int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return min(max(limit, 1), upper)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
