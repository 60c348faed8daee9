package lexicon

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

const defaultSaleMinScore = 2

type fileModel struct {
	Version    int               `yaml:"version"`
	Brands     []brandModel      `yaml:"brands"`
	Categories map[string][]Term `yaml:"categories"`
	StopWords  []string          `yaml:"stop_words"`
	Negations  []string          `yaml:"negations"`
	SaleIntent SaleIntent        `yaml:"sale_intent"`
}

type brandModel struct {
	Name    string       `yaml:"name"`
	Aliases []string     `yaml:"aliases"`
	Models  []modelModel `yaml:"models"`
}

type modelModel struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Default returns the built-in lexicon. It panics only if the embedded table is broken.
func Default() *Lexicon {
	l, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded default: %v", err))
	}
	return l
}

// Load reads and compiles a lexicon YAML file.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return l, nil
}

// Parse validates and compiles lexicon YAML.
func Parse(data []byte) (*Lexicon, error) {
	var m fileModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return compile(m)
}

func compile(m fileModel) (*Lexicon, error) {
	if len(m.Brands) == 0 {
		return nil, fmt.Errorf("at least one brand is required")
	}

	l := &Lexicon{
		version:    m.Version,
		spellings:  make(map[string][]string, len(m.Brands)),
		categories: make(map[string][]Term, len(m.Categories)),
		stopWords:  foldSet(m.StopWords),
		negations:  foldSet(m.Negations),
	}

	for i, b := range m.Brands {
		if b.Name == "" {
			return nil, fmt.Errorf("brands[%d]: name is required", i)
		}
		key := Fold(b.Name)
		for _, a := range append([]string{b.Name}, b.Aliases...) {
			if words := Words(a); len(words) > 0 {
				l.aliases = append(l.aliases, Alias{Words: words, Brand: b.Name})
				l.spellings[key] = appendUnique(l.spellings[key], Fold(a))
			}
		}
		for j, md := range b.Models {
			if md.Name == "" {
				return nil, fmt.Errorf("brands[%d].models[%d]: name is required", i, j)
			}
			for _, a := range append([]string{md.Name}, md.Aliases...) {
				if words := Words(a); len(words) > 0 {
					l.aliases = append(l.aliases, Alias{Words: words, Brand: b.Name, Model: md.Name})
				}
			}
		}
	}
	sortAliases(l.aliases)

	for field, terms := range m.Categories {
		if !knownField(field) {
			return nil, fmt.Errorf("categories: unknown field %q", field)
		}
		compiled := make([]Term, 0, len(terms))
		for i, t := range terms {
			if t.Value == "" {
				return nil, fmt.Errorf("categories.%s[%d]: value is required", field, i)
			}
			if len(t.Stems) == 0 && len(t.Words) == 0 {
				return nil, fmt.Errorf("categories.%s[%d]: stems or words are required", field, i)
			}
			compiled = append(compiled, Term{Value: t.Value, Stems: foldAll(t.Stems), Words: foldAll(t.Words)})
		}
		l.categories[field] = compiled
	}

	l.sale = SaleIntent{
		MinScore: m.SaleIntent.MinScore,
		Positive: foldAll(m.SaleIntent.Positive),
		Negative: foldAll(m.SaleIntent.Negative),
	}
	if l.sale.MinScore <= 0 {
		l.sale.MinScore = defaultSaleMinScore
	}
	return l, nil
}

func knownField(field string) bool {
	for _, f := range fieldOrder {
		if f == field {
			return true
		}
	}
	return false
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func foldSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range foldAll(in) {
		out[s] = struct{}{}
	}
	return out
}
