package interpret

import (
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

type slot uint8

const (
	slotBrand slot = iota
	slotModel
	slotYearMin
	slotYearMax
	slotYearExact
	slotMileageMin
	slotMileageMax
	slotPriceMin
	slotPriceMax
	slotFuel
	slotColor
	slotPaintCondition
	slotCondition
	slotRegion
	slotExclusion
)

var fieldSlots = map[string]slot{
	lexicon.FieldFuel:           slotFuel,
	lexicon.FieldColor:          slotColor,
	lexicon.FieldPaintCondition: slotPaintCondition,
	lexicon.FieldCondition:      slotCondition,
	lexicon.FieldRegion:         slotRegion,
}

// extraction is one candidate fact found by a rule.
// spans are consumed exclusively; soft tokens (context nouns) are consumed but may be shared.
type extraction struct {
	slot  slot
	text  string
	num   int64
	brand string // brand owning a matched model
	spans []int
	soft  []int
}

func (e extraction) at() int {
	first := -1
	for _, s := range e.spans {
		if first < 0 || s < first {
			first = s
		}
	}
	return first
}

// rule is a pure extraction over the token stream.
type rule func(toks []token, lex *lexicon.Lexicon) []extraction

// brandRule matches brand and model aliases, longest alias first at each position.
func brandRule(toks []token, lex *lexicon.Lexicon) []extraction {
	aliases := lex.Aliases()
	var out []extraction
	for i, t := range toks {
		if t.kind != kindWord && t.kind != kindNumber {
			continue
		}
		for _, a := range aliases {
			end, ok := matchAlias(toks, i, a.Words)
			if !ok {
				continue
			}
			e := extraction{slot: slotBrand, text: a.Brand, spans: seq(i, end)}
			if a.Model != "" {
				e.slot, e.text, e.brand = slotModel, a.Model, a.Brand
			}
			out = append(out, e)
			break
		}
	}
	return out
}

// matchAlias matches alias words from position i, allowing hyphens between them.
func matchAlias(toks []token, i int, words []string) (int, bool) {
	k := i
	for n, w := range words {
		if n > 0 && k < len(toks) && toks[k].isSymbol("-") {
			k++
		}
		if k >= len(toks) {
			return 0, false
		}
		t := toks[k]
		if (t.kind != kindWord && t.kind != kindNumber) || !lexicon.MatchAliasWord(t.text, w) {
			return 0, false
		}
		k++
	}
	return k, true
}

// categoryRule matches categorical terms. A negation cue right before the term
// turns it into an exclusion of the matched stem.
func categoryRule(toks []token, lex *lexicon.Lexicon) []extraction {
	var out []extraction
	for i, t := range toks {
		if t.kind != kindWord {
			continue
		}
		m, ok := lex.LookupTerm(t.text)
		if !ok {
			continue
		}
		if negated(toks, i, lex) {
			out = append(out, extraction{slot: slotExclusion, text: m.Key, spans: []int{i - 1, i}})
			continue
		}
		out = append(out, extraction{slot: fieldSlots[m.Field], text: m.Value, spans: []int{i}})
	}
	return out
}

// negationRule excludes a negated word that is neither a categorical term nor part of
// the numeric or stop vocabulary ("без такси" excludes "такси").
func negationRule(toks []token, lex *lexicon.Lexicon) []extraction {
	var out []extraction
	for i, t := range toks {
		if t.kind != kindWord || !negated(toks, i, lex) {
			continue
		}
		if lex.IsStopWord(t.text) || lex.IsNegation(t.text) || numericWord(t.text) {
			continue
		}
		if _, ok := lex.LookupTerm(t.text); ok {
			continue
		}
		out = append(out, extraction{slot: slotExclusion, text: t.text, spans: []int{i - 1, i}})
	}
	return out
}

func negated(toks []token, i int, lex *lexicon.Lexicon) bool {
	return i > 0 && toks[i-1].kind == kindWord && lex.IsNegation(toks[i-1].text)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for k := from; k < to; k++ {
		out = append(out, k)
	}
	return out
}
