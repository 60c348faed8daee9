// Package retrieve turns a structured query into vector index candidates.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/filter"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

// Defaults applied when Config fields are zero.
const (
	DefaultTopK      = 20
	DefaultOverfetch = 3
	DefaultTolerance = 0.25
	DefaultYearSlack = 1
)

// Tag fields pushed down to the index.
const (
	tagBrand  = "brand"
	tagFuel   = "fuel"
	tagRegion = "region"
)

// Config tunes candidate retrieval.
type Config struct {
	Overfetch int     // multiplier on topK when numeric post-filters apply
	Tolerance float64 // fraction past a price or mileage bound still accepted
	YearSlack int     // years past a year bound still accepted
}

func (c *Config) applyDefaults() {
	if c.Overfetch <= 0 {
		c.Overfetch = DefaultOverfetch
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.YearSlack < 0 {
		c.YearSlack = 0
	}
}

// Retriever embeds query text and fetches nearest listings.
type Retriever struct {
	embed domain.Embedder
	index Index
	lex   lexicon.Provider
	cfg   Config
}

// New creates a Retriever. Tag filters accept every lexicon spelling of the queried value.
func New(embed domain.Embedder, index Index, lex lexicon.Provider, cfg Config) *Retriever {
	cfg.applyDefaults()
	return &Retriever{embed: embed, index: index, lex: lex, cfg: cfg}
}

// Retrieve returns up to topK candidates ordered by similarity desc, then source_url.
func (r *Retriever) Retrieve(
	ctx context.Context, text string, q query.StructuredQuery, topK int,
) ([]listing.Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	emb, err := r.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filters, err := pushdown(q, r.lex.Lexicon())
	if err != nil {
		return nil, fmt.Errorf("build filters: %w", err)
	}

	k := topK
	if q.HasNumericRange() {
		k = topK * r.cfg.Overfetch
	}

	cands, err := r.index.Nearest(ctx, emb.Embedding, filters, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalUnavailable, err)
	}

	cands = dedupe(cands)
	cands = r.postFilter(cands, q)
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Similarity != cands[j].Similarity {
			return cands[i].Similarity > cands[j].Similarity
		}
		return cands[i].Document.SourceURL < cands[j].Document.SourceURL
	})

	if len(cands) > topK {
		cands = cands[:topK]
	}
	return cands, nil
}

// pushdown turns brand, fuel and region into tag conditions. Each condition is the union
// of the value's lexicon spellings so listings tagged with an alias are not lost in the index.
func pushdown(q query.StructuredQuery, lex *lexicon.Lexicon) (filter.Expression, error) {
	var must []filter.Condition
	for _, t := range []struct {
		key       string
		val       *string
		spellings func(string) []string
	}{
		{tagBrand, q.Brand, lex.BrandSpellings},
		{tagFuel, q.Fuel, func(v string) []string { return lex.TermSpellings(lexicon.FieldFuel, v) }},
		{tagRegion, q.Region, func(v string) []string { return lex.TermSpellings(lexicon.FieldRegion, v) }},
	} {
		if t.val == nil {
			continue
		}
		values := t.spellings(*t.val)
		if len(values) == 0 {
			continue
		}
		c, err := filter.NewMatch(t.key, values...)
		if err != nil {
			return filter.Expression{}, err //nolint:wrapcheck // validated inputs
		}
		must = append(must, c)
	}
	return filter.NewExpression(must, nil) //nolint:wrapcheck // at most three conditions
}

// dedupe keeps the most similar candidate per source_url. Candidates without a URL are kept as is.
func dedupe(cands []listing.Candidate) []listing.Candidate {
	best := make(map[string]int, len(cands))
	out := make([]listing.Candidate, 0, len(cands))
	for _, c := range cands {
		url := c.Document.SourceURL
		if url == "" {
			out = append(out, c)
			continue
		}
		if i, ok := best[url]; ok {
			if c.Similarity > out[i].Similarity {
				out[i] = c
			}
			continue
		}
		best[url] = len(out)
		out = append(out, c)
	}
	return out
}

func (r *Retriever) postFilter(cands []listing.Candidate, q query.StructuredQuery) []listing.Candidate {
	type check struct {
		rng       *filter.Range
		tolerance float64
		value     func(listing.Document) *int64
	}
	var checks []check
	if rng := newRange(q.PriceMin, q.PriceMax, 0); rng != nil {
		checks = append(checks, check{rng, r.cfg.Tolerance, func(d listing.Document) *int64 { return d.Price }})
	}
	if rng := newRange(q.MileageMin, q.MileageMax, 0); rng != nil {
		checks = append(checks, check{rng, r.cfg.Tolerance, func(d listing.Document) *int64 { return d.Mileage }})
	}
	if rng := newRange(q.YearMin, q.YearMax, r.cfg.YearSlack); rng != nil {
		checks = append(checks, check{rng, 0, func(d listing.Document) *int64 { return d.Year }})
	}
	if len(checks) == 0 {
		return cands
	}

	out := cands[:0]
next:
	for _, c := range cands {
		for _, ch := range checks {
			v := ch.value(c.Document)
			if v != nil && !ch.rng.Contains(float64(*v), ch.tolerance) {
				continue next
			}
		}
		out = append(out, c)
	}
	return out
}

// newRange widens both bounds by slack. Returns nil when the dimension is unconstrained.
func newRange(lo, hi *int64, slack int) *filter.Range {
	var gte, lte *float64
	if lo != nil {
		v := float64(*lo - int64(slack))
		gte = &v
	}
	if hi != nil {
		v := float64(*hi + int64(slack))
		lte = &v
	}
	rng, err := filter.NewRangeFilter(gte, lte)
	if err != nil {
		return nil
	}
	return &rng
}
