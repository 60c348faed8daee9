package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
)

const maxHighlights = 5

// Answer is a short summary built only from the returned results.
type Answer struct {
	Summary    string         `json:"summary"`
	Highlights []string       `json:"highlights"`
	Sources    []AnswerSource `json:"sources"`
}

// AnswerSource is one distinct source with a representative listing URL.
type AnswerSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// BuildAnswer summarizes results in the query language (Russian unless lang is "en").
func BuildAnswer(sq query.StructuredQuery, results []result.Result, lang string) *Answer {
	en := lang == "en"

	a := &Answer{Highlights: []string{}, Sources: []AnswerSource{}}
	if len(results) == 0 {
		if en {
			a.Summary = "No matching listings found for your query."
		} else {
			a.Summary = "По вашему запросу подходящих вариантов не найдено."
		}
		return a
	}

	brand := sq.BrandName()
	n := len(results)
	switch {
	case en && brand == "":
		a.Summary = fmt.Sprintf("Found %d %s that best %s your query.",
			n, enPlural(n, "car", "cars"), enPlural(n, "matches", "match"))
	case en:
		a.Summary = fmt.Sprintf("Found %d %s %s that best %s your query.",
			n, brand, enPlural(n, "listing", "listings"), enPlural(n, "matches", "match"))
	default:
		what := "автомобилей"
		if brand != "" {
			what = brand
		}
		verb := ruPlural(n, "Найден", "Найдено", "Найдено")
		noun := ruPlural(n, "вариант", "варианта", "вариантов")
		a.Summary = fmt.Sprintf("%s %d %s %s, наиболее соответствующих вашему запросу.", verb, n, noun, what)
	}

	for _, r := range results[:min(maxHighlights, len(results))] {
		a.Highlights = append(a.Highlights, highlight(r, en))
	}

	seen := make(map[string]bool)
	for _, r := range results {
		name := r.SourceName()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		a.Sources = append(a.Sources, AnswerSource{Name: name, URL: r.SourceURL()})
	}
	return a
}

// ruPlural picks the Russian form for n: one (1, 21), few (2-4, 22-24) or many (0, 5-20, 25).
func ruPlural(n int, one, few, many string) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func enPlural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func highlight(r result.Result, en bool) string {
	d := r.Document()

	title := strings.TrimSpace(d.Brand + " " + d.Model)
	if title == "" {
		title = "—"
	}
	currency := d.Currency
	if currency == "" {
		currency = "₽"
	}

	yearUnit, kmUnit := "г.", "км"
	if en {
		yearUnit, kmUnit = "", "km"
	}

	parts := []string{
		title,
		strings.TrimSpace(orDash(d.Year) + " " + yearUnit),
		orDash(d.Mileage) + " " + kmUnit,
		orDash(d.Price) + " " + currency,
	}
	line := strings.Join(parts, ", ")
	if why := r.WhyMatch(); why != "" {
		line += " — " + why
	}
	return line
}

func orDash(v *int64) string {
	if v == nil {
		return "—"
	}
	return strconv.FormatInt(*v, 10)
}
