// Package lexicon holds the versioned whitelist and alias tables used to read vehicle queries:
// brands and models, categorical terms (fuel, color, paint, condition, region), stop words,
// negation cues and sale-intent phrases.
package lexicon

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Categorical fields, in lookup priority order.
const (
	FieldFuel           = "fuel"
	FieldColor          = "color"
	FieldPaintCondition = "paint_condition"
	FieldCondition      = "condition"
	FieldRegion         = "region"
)

var fieldOrder = []string{FieldPaintCondition, FieldCondition, FieldFuel, FieldColor, FieldRegion}

// minPrefixRunes is the alias length from which inflected forms match by prefix ("мерседеса").
const minPrefixRunes = 5

// Provider exposes the lexicon currently in effect.
type Provider interface {
	Lexicon() *Lexicon
}

// Alias is one brand or model spelling, pre-split into folded words.
type Alias struct {
	Words []string
	Brand string
	Model string // empty for brand aliases
}

// Term is a categorical value with the stems and exact words that denote it.
type Term struct {
	Value string   `yaml:"value"`
	Stems []string `yaml:"stems"`
	Words []string `yaml:"words"`
}

// TermMatch is a categorical hit for a single word.
type TermMatch struct {
	Field string
	Value string
	Key   string // the stem or word that matched
}

// SaleIntent configures the sale-intent heuristic.
type SaleIntent struct {
	MinScore int      `yaml:"min_score"`
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Lexicon is an immutable, compiled set of tables. Safe for concurrent use.
type Lexicon struct {
	version    int
	aliases    []Alias
	spellings  map[string][]string // folded brand name -> folded spellings, name first
	categories map[string][]Term
	stopWords  map[string]struct{}
	negations  map[string]struct{}
	sale       SaleIntent
}

// Version returns the table version from the source file.
func (l *Lexicon) Version() int { return l.version }

// Lexicon lets a *Lexicon act as its own Provider.
func (l *Lexicon) Lexicon() *Lexicon { return l }

// Aliases returns brand and model aliases, longest first.
func (l *Lexicon) Aliases() []Alias { return l.aliases }

// SaleIntent returns the sale-intent phrase tables.
func (l *Lexicon) SaleIntent() SaleIntent { return l.sale }

// IsStopWord reports whether a folded word carries no search meaning.
func (l *Lexicon) IsStopWord(w string) bool {
	_, ok := l.stopWords[w]
	return ok
}

// IsNegation reports whether a folded word negates the following term.
func (l *Lexicon) IsNegation(w string) bool {
	_, ok := l.negations[w]
	return ok
}

// MatchAliasWord reports whether a query word matches one alias word.
func MatchAliasWord(word, alias string) bool {
	if word == alias {
		return true
	}
	return utf8.RuneCountInString(alias) >= minPrefixRunes && strings.HasPrefix(word, alias)
}

// LookupTerm finds the categorical term a folded word denotes.
func (l *Lexicon) LookupTerm(word string) (TermMatch, bool) {
	for _, field := range fieldOrder {
		if m, ok := l.lookupIn(field, word); ok {
			return m, true
		}
	}
	return TermMatch{}, false
}

func (l *Lexicon) lookupIn(field, word string) (TermMatch, bool) {
	for _, t := range l.categories[field] {
		for _, w := range t.Words {
			if word == w {
				return TermMatch{Field: field, Value: t.Value, Key: w}, true
			}
		}
		for _, s := range t.Stems {
			if strings.HasPrefix(word, s) {
				return TermMatch{Field: field, Value: t.Value, Key: s}, true
			}
		}
	}
	return TermMatch{}, false
}

// Resolve maps an exclusion key (a stem or word recorded by the interpreter) to its term.
func (l *Lexicon) Resolve(key string) (TermMatch, bool) {
	return l.LookupTerm(Fold(key))
}

// Canonical maps a free-form document value of a categorical field to the lexicon value.
// Unknown values come back folded so comparisons stay case- and script-insensitive.
func (l *Lexicon) Canonical(field, raw string) string {
	folded := Fold(raw)
	if folded == "" {
		return ""
	}
	for _, w := range Words(folded) {
		if m, ok := l.lookupIn(field, w); ok {
			return Fold(m.Value)
		}
	}
	return folded
}

// CanonicalBrand maps a brand spelling ("бмв", "Mercedes") to the whitelist name, folded.
func (l *Lexicon) CanonicalBrand(raw string) string {
	words := Words(raw)
	if len(words) == 0 {
		return ""
	}
	for _, a := range l.aliases {
		if a.Model != "" || len(a.Words) > len(words) {
			continue
		}
		if matchSeq(words, a.Words) {
			return Fold(a.Brand)
		}
	}
	return Fold(raw)
}

// BrandSpellings returns every folded spelling of the brand raw names, canonical name first.
// A brand the lexicon does not know yields its own folded spelling.
func (l *Lexicon) BrandSpellings(raw string) []string {
	key := l.CanonicalBrand(raw)
	if key == "" {
		return nil
	}
	if sp, ok := l.spellings[key]; ok {
		return sp
	}
	return []string{key}
}

// TermSpellings returns the folded value of a categorical term followed by its exact words.
// Stems are prefixes and are not included.
func (l *Lexicon) TermSpellings(field, value string) []string {
	v := l.Canonical(field, value)
	if v == "" {
		return nil
	}
	out := []string{v}
	for _, t := range l.categories[field] {
		if Fold(t.Value) != v {
			continue
		}
		for _, w := range t.Words {
			if w != v {
				out = append(out, w)
			}
		}
		break
	}
	return out
}

// CanonicalModel maps a model spelling to the whitelist name, folded.
func (l *Lexicon) CanonicalModel(raw string) string {
	words := Words(raw)
	for _, a := range l.aliases {
		if a.Model == "" || len(a.Words) > len(words) {
			continue
		}
		for i := 0; i+len(a.Words) <= len(words); i++ {
			if matchSeq(words[i:], a.Words) {
				return Fold(a.Model)
			}
		}
	}
	return Fold(raw)
}

func matchSeq(words, alias []string) bool {
	if len(alias) > len(words) {
		return false
	}
	for i, aw := range alias {
		if !MatchAliasWord(words[i], aw) {
			return false
		}
	}
	return true
}

func sortAliases(aliases []Alias) {
	sort.SliceStable(aliases, func(i, j int) bool {
		return len(aliases[i].Words) > len(aliases[j].Words)
	})
}
