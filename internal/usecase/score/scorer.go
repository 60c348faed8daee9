// Package score ranks retrieved listings against a structured query and explains each match.
package score

import (
	"sort"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/match"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

// Scorer is a pure function of candidates, query, weights and lexicon.
type Scorer struct {
	w   Weights
	lex lexicon.Provider
}

// New creates a Scorer.
func New(w Weights, lex lexicon.Provider) *Scorer {
	return &Scorer{w: w, lex: lex}
}

// Score ranks candidates: score desc, similarity desc, source_url asc.
func (s *Scorer) Score(candidates []listing.Candidate, q query.StructuredQuery) []result.Result {
	lex := s.lex.Lexicon()
	out := make([]result.Result, 0, len(candidates))
	for _, c := range candidates {
		v, reasons := s.scoreOne(lex, c, q)
		out = append(out, result.New(c, v, reasons))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.Similarity() != b.Similarity() {
			return a.Similarity() > b.Similarity()
		}
		return a.SourceURL() < b.SourceURL()
	})
	return out
}

func (s *Scorer) scoreOne(lex *lexicon.Lexicon, c listing.Candidate, q query.StructuredQuery) (float64, match.Set) {
	doc := c.Document
	v := clamp01(c.Similarity)
	var reasons match.Set

	add := func(ok bool, w float64, r match.Reason, explain bool) {
		if !ok {
			return
		}
		v += w
		if explain {
			reasons = reasons.With(r)
		}
	}

	if q.Brand != nil && doc.Brand != "" {
		add(lex.CanonicalBrand(doc.Brand) == lex.CanonicalBrand(*q.Brand), s.w.BrandMatch, match.Brand, true)
	}
	if q.Model != nil && doc.Model != "" {
		add(lex.CanonicalModel(doc.Model) == lex.CanonicalModel(*q.Model), s.w.ModelMatch, 0, false)
	}

	v += s.rangeFit(doc.Price, q.PriceMin, q.PriceMax, s.w.PriceFit, match.Price, &reasons)
	v += s.rangeFit(doc.Mileage, q.MileageMin, q.MileageMax, s.w.MileageFit, match.Mileage, &reasons)
	v += s.rangeFit(doc.Year, q.YearMin, q.YearMax, s.w.YearFit, 0, nil)

	add(sameTerm(lex, lexicon.FieldFuel, q.Fuel, doc.Fuel), s.w.FuelMatch, match.Fuel, true)
	add(sameTerm(lex, lexicon.FieldCondition, q.Condition, doc.Condition), s.w.ConditionMatch, match.Condition, true)
	add(sameTerm(lex, lexicon.FieldPaintCondition, q.PaintCondition, doc.PaintCondition), s.w.ConditionMatch, match.Condition, true)
	add(sameTerm(lex, lexicon.FieldColor, q.Color, doc.Color), s.w.ColorMatch, 0, false)
	add(sameTerm(lex, lexicon.FieldRegion, q.Region, doc.Region), s.w.RegionMatch, 0, false)

	add(HasSaleIntent(lex, doc.RawText), s.w.SaleIntent, match.SaleIntent, true)

	if excluded(lex, q.Exclusions, doc) {
		v -= s.w.ExclusionPenalty
	}
	v += s.w.SourceBoosts[doc.SourceName]

	return clamp01(v), reasons
}

// rangeFit rewards an in-range value, penalizes an out-of-range one and ignores a missing one.
func (s *Scorer) rangeFit(value, lo, hi *int64, w float64, r match.Reason, reasons *match.Set) float64 {
	if value == nil || (lo == nil && hi == nil) {
		return 0
	}
	if (lo != nil && *value < *lo) || (hi != nil && *value > *hi) {
		return -s.w.RangePenalty
	}
	if reasons != nil {
		*reasons = reasons.With(r)
	}
	return w
}

func sameTerm(lex *lexicon.Lexicon, field string, want *string, have string) bool {
	if want == nil || have == "" {
		return false
	}
	return lex.Canonical(field, have) == lex.Canonical(field, *want)
}

// excluded reports whether any exclusion resolves to a value the document carries.
// Exclusions the lexicon cannot resolve are checked against the brand only.
func excluded(lex *lexicon.Lexicon, exclusions query.Set, doc listing.Document) bool {
	for _, ex := range exclusions.Values() {
		if doc.Brand != "" && lex.CanonicalBrand(ex) == lex.CanonicalBrand(doc.Brand) {
			return true
		}
		term, ok := lex.Resolve(ex)
		if ok && lex.Canonical(term.Field, docField(doc, term.Field)) == lexicon.Fold(term.Value) {
			return true
		}
	}
	return false
}

func docField(doc listing.Document, field string) string {
	switch field {
	case lexicon.FieldFuel:
		return doc.Fuel
	case lexicon.FieldColor:
		return doc.Color
	case lexicon.FieldPaintCondition:
		return doc.PaintCondition
	case lexicon.FieldCondition:
		return doc.Condition
	case lexicon.FieldRegion:
		return doc.Region
	}
	return ""
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
