// Package interpret turns a free-text vehicle query into a StructuredQuery and a residual
// text for semantic search. Extraction is a set of independent rules over a token stream;
// the leftmost match wins each slot.
package interpret

import (
	"sort"
	"strings"
	"time"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

// Interpreter parses raw queries. Deterministic for a given input, lexicon and clock.
type Interpreter struct {
	lex   lexicon.Provider
	now   func() time.Time
	rules []rule
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithClock overrides the clock used for the plausible year window.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

// New creates an Interpreter reading tables from lex.
func New(lex lexicon.Provider, opts ...Option) *Interpreter {
	in := &Interpreter{lex: lex, now: time.Now}
	for _, o := range opts {
		o(in)
	}
	in.rules = []rule{brandRule, numberRule(in.now), categoryRule, negationRule}
	return in
}

// Interpret extracts the structured intent and the residual text. It never fails:
// when nothing is recognized the query is empty apart from keywords and residual is raw.
func (in *Interpreter) Interpret(raw string) (query.StructuredQuery, string) {
	var q query.StructuredQuery
	toks := tokenize(lexicon.Fold(raw))
	if len(toks) == 0 {
		return q, raw
	}
	lex := in.lex.Lexicon()

	var found []extraction
	for _, r := range in.rules {
		found = append(found, r(toks, lex)...)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].at() < found[j].at() })

	consumed := make([]bool, len(toks))
	applied := 0
	modelBrand := ""
	for _, e := range found {
		if overlaps(consumed, e.spans) || !apply(&q, e) {
			continue
		}
		if e.slot == slotModel {
			modelBrand = e.brand
		}
		for _, k := range e.spans {
			consumed[k] = true
		}
		for _, k := range e.soft {
			consumed[k] = true
		}
		applied++
	}

	if q.Model != nil && modelBrand != "" {
		switch {
		case q.Brand == nil:
			q.Brand = query.Str(modelBrand)
		case *q.Brand != modelBrand:
			q.Model = nil
		}
	}
	q.Normalize()

	var residual []string
	for k, t := range toks {
		if consumed[k] || (t.kind != kindWord && t.kind != kindNumber) {
			continue
		}
		if t.kind == kindWord && (lex.IsStopWord(t.text) || lex.IsNegation(t.text)) {
			continue
		}
		if t.kind == kindWord {
			q.Keywords.Add(t.text)
		}
		residual = append(residual, t.text)
	}

	if applied == 0 {
		return q, raw
	}
	return q, strings.Join(residual, " ")
}

func overlaps(consumed []bool, spans []int) bool {
	for _, k := range spans {
		if k < 0 || k >= len(consumed) || consumed[k] {
			return true
		}
	}
	return false
}

// apply fills the slot unless a leftmost extraction already did.
func apply(q *query.StructuredQuery, e extraction) bool {
	if e.slot == slotExclusion {
		q.Exclusions.Add(e.text)
		return true
	}
	if e.slot == slotYearExact {
		if q.YearMin != nil || q.YearMax != nil {
			return false
		}
		q.YearMin, q.YearMax = query.Int(e.num), query.Int(e.num)
		return true
	}

	switch e.slot {
	case slotBrand:
		return setStr(&q.Brand, e.text)
	case slotModel:
		return setStr(&q.Model, e.text)
	case slotFuel:
		return setStr(&q.Fuel, e.text)
	case slotColor:
		return setStr(&q.Color, e.text)
	case slotPaintCondition:
		return setStr(&q.PaintCondition, e.text)
	case slotCondition:
		return setStr(&q.Condition, e.text)
	case slotRegion:
		return setStr(&q.Region, e.text)
	case slotYearMin:
		return setInt(&q.YearMin, e.num)
	case slotYearMax:
		return setInt(&q.YearMax, e.num)
	case slotMileageMin:
		return setInt(&q.MileageMin, e.num)
	case slotMileageMax:
		return setInt(&q.MileageMax, e.num)
	case slotPriceMin:
		return setInt(&q.PriceMin, e.num)
	case slotPriceMax:
		return setInt(&q.PriceMax, e.num)
	}
	return false
}

func setStr(dst **string, v string) bool {
	if *dst != nil {
		return false
	}
	*dst = query.Str(v)
	return true
}

func setInt(dst **int64, v int64) bool {
	if *dst != nil {
		return false
	}
	*dst = query.Int(v)
	return true
}
