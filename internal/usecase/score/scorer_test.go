package score

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/match"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

func newTestScorer() *Scorer { return New(DefaultWeights(), lexicon.Default()) }

func candidate(url string, sim float64, mutate func(d *listing.Document)) listing.Candidate {
	d := listing.Document{SourceURL: url, SourceName: "forum"}
	if mutate != nil {
		mutate(&d)
	}
	return listing.Candidate{Document: d, Similarity: sim}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func bmwQuery() query.StructuredQuery {
	return query.StructuredQuery{
		Brand:      query.Str("BMW"),
		PriceMax:   query.Int(2_000_000),
		MileageMax: query.Int(50_000),
		Exclusions: query.NewSet("окрас"),
	}
}

func TestScore_EndToEndPriceFit(t *testing.T) {
	cheap := candidate("https://a", 0.5, func(d *listing.Document) {
		d.Brand, d.Price, d.Mileage, d.PaintCondition = "BMW", query.Int(1_800_000), query.Int(40_000), "none"
	})
	pricey := candidate("https://b", 0.5, func(d *listing.Document) {
		d.Brand, d.Price, d.Mileage, d.PaintCondition = "BMW", query.Int(2_500_000), query.Int(40_000), "none"
	})

	got := newTestScorer().Score([]listing.Candidate{pricey, cheap}, bmwQuery())
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SourceURL() != "https://a" {
		t.Fatalf("first = %s, want https://a", got[0].SourceURL())
	}
	if !approx(got[0].Score(), 0.85) {
		t.Errorf("cheap score = %v, want 0.85", got[0].Score())
	}
	if !approx(got[1].Score(), 0.65) {
		t.Errorf("pricey score = %v, want 0.65", got[1].Score())
	}
	if got[0].WhyMatch() != "brand, price, mileage" {
		t.Errorf("why_match = %q", got[0].WhyMatch())
	}
	if got[1].Reasons().Has(match.Price) {
		t.Error("out-of-range price must not be a reason")
	}
}

func TestScore_MissingFieldIsNeutral(t *testing.T) {
	q := query.StructuredQuery{PriceMax: query.Int(1_000_000)}
	got := newTestScorer().Score([]listing.Candidate{candidate("u", 0.4, nil)}, q)
	if !approx(got[0].Score(), 0.4) {
		t.Errorf("score = %v, want 0.4", got[0].Score())
	}
	if got[0].Reasons().Len() != 0 {
		t.Errorf("reasons = %v, want none", got[0].Reasons())
	}
}

func TestScore_ExclusionDemotesButKeeps(t *testing.T) {
	clean := candidate("https://clean", 0.5, func(d *listing.Document) {
		d.Brand, d.PaintCondition = "BMW", "none"
	})
	repainted := candidate("https://repainted", 0.9, func(d *listing.Document) {
		d.Brand, d.PaintCondition = "BMW", "крашеный"
	})

	got := newTestScorer().Score([]listing.Candidate{repainted, clean}, bmwQuery())
	if len(got) != 2 {
		t.Fatalf("len = %d, exclusion must not drop", len(got))
	}
	if got[0].SourceURL() != "https://clean" {
		t.Errorf("first = %s, excluded listing should be demoted", got[0].SourceURL())
	}
	if !approx(got[1].Score(), 0.55) {
		t.Errorf("excluded score = %v, want 0.55", got[1].Score())
	}
}

func TestScore_AliasResolvedCategories(t *testing.T) {
	q := query.StructuredQuery{Brand: query.Str("BMW"), Fuel: query.Str("diesel"), Region: query.Str("Москва")}
	c := candidate("u", 0.2, func(d *listing.Document) {
		d.Brand, d.Fuel, d.Region = "бмв", "Дизель", "г. Москва"
	})
	got := newTestScorer().Score([]listing.Candidate{c}, q)
	if !got[0].Reasons().Has(match.Brand) || !got[0].Reasons().Has(match.Fuel) {
		t.Errorf("reasons = %v, want brand and fuel", got[0].Reasons())
	}
	if !approx(got[0].Score(), 0.2+0.15+0.05+0.03) {
		t.Errorf("score = %v", got[0].Score())
	}
}

func TestScore_PaintConditionCountsAsCondition(t *testing.T) {
	q := query.StructuredQuery{PaintCondition: query.Str("original")}
	c := candidate("u", 0.3, func(d *listing.Document) { d.PaintCondition = "заводской окрас" })
	got := newTestScorer().Score([]listing.Candidate{c}, q)
	if !got[0].Reasons().Has(match.Condition) {
		t.Errorf("reasons = %v, want condition", got[0].Reasons())
	}
}

func TestScore_ClampsAtZero(t *testing.T) {
	q := query.StructuredQuery{PriceMax: query.Int(1), MileageMax: query.Int(1)}
	c := candidate("u", 0.05, func(d *listing.Document) {
		d.Price, d.Mileage = query.Int(5), query.Int(5)
	})
	got := newTestScorer().Score([]listing.Candidate{c}, q)
	if got[0].Score() != 0 {
		t.Errorf("score = %v, want 0", got[0].Score())
	}
}

func TestScore_DeterministicOrdering(t *testing.T) {
	cands := []listing.Candidate{
		candidate("https://c", 0.5, nil),
		candidate("https://a", 0.5, nil),
		candidate("https://b", 0.7, nil),
		candidate("https://d", 0.5, nil),
	}
	s := newTestScorer()
	first := s.Score(cands, query.StructuredQuery{})
	second := s.Score(cands, query.StructuredQuery{})
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Score is not idempotent")
	}

	var urls []string
	for _, r := range first {
		urls = append(urls, r.SourceURL())
	}
	want := []string{"https://b", "https://a", "https://c", "https://d"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("order = %v, want %v", urls, want)
	}
}

func TestScore_Monotonic(t *testing.T) {
	q := query.StructuredQuery{
		Brand:          query.Str("BMW"),
		Model:          query.Str("X5"),
		PriceMax:       query.Int(3_000_000),
		MileageMax:     query.Int(100_000),
		YearMin:        query.Int(2015),
		Fuel:           query.Str("diesel"),
		Condition:      query.Str("used"),
		PaintCondition: query.Str("original"),
		Region:         query.Str("Москва"),
		Color:          query.Str("black"),
	}
	signals := map[string]func(d *listing.Document){
		"brand":     func(d *listing.Document) { d.Brand = "BMW" },
		"model":     func(d *listing.Document) { d.Model = "X5" },
		"price":     func(d *listing.Document) { d.Price = query.Int(2_000_000) },
		"mileage":   func(d *listing.Document) { d.Mileage = query.Int(10_000) },
		"year":      func(d *listing.Document) { d.Year = query.Int(2020) },
		"fuel":      func(d *listing.Document) { d.Fuel = "diesel" },
		"condition": func(d *listing.Document) { d.Condition = "подержанный" },
		"paint":     func(d *listing.Document) { d.PaintCondition = "original" },
		"region":    func(d *listing.Document) { d.Region = "Москва" },
		"color":     func(d *listing.Document) { d.Color = "черный" },
		"sale":      func(d *listing.Document) { d.RawText = "Продам, цена 2 млн" },
	}

	s := newTestScorer()
	base := s.Score([]listing.Candidate{candidate("u", 0.1, nil)}, q)[0].Score()
	for name, mutate := range signals {
		with := s.Score([]listing.Candidate{candidate("u", 0.1, mutate)}, q)[0].Score()
		if with <= base {
			t.Errorf("%s: score with signal %v <= without %v", name, with, base)
		}
	}
}

func TestScore_SourceBoost(t *testing.T) {
	w := DefaultWeights()
	w.SourceBoosts = map[string]float64{"forum": 0.1, "marketplace": -0.1}
	s := New(w, lexicon.Default())

	forum := candidate("https://f", 0.5, nil)
	market := candidate("https://m", 0.5, func(d *listing.Document) { d.SourceName = "marketplace" })
	got := s.Score([]listing.Candidate{market, forum}, query.StructuredQuery{})
	if got[0].SourceURL() != "https://f" || !approx(got[0].Score(), 0.6) || !approx(got[1].Score(), 0.4) {
		t.Errorf("got %s=%v %s=%v", got[0].SourceURL(), got[0].Score(), got[1].SourceURL(), got[1].Score())
	}
}

func TestHasSaleIntent(t *testing.T) {
	lex := lexicon.Default()
	tests := []struct {
		text string
		want bool
	}{
		{"Продам BMW X5, цена 2 500 000 руб", true},
		{"Продаю срочно, торг", true},
		{"BMW X5 2018, 2 500 000 ₽", false},
		{"Подскажите, что лучше купить BMW за 2 млн", false},
		{"Selling my car", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasSaleIntent(lex, tt.text); got != tt.want {
			t.Errorf("HasSaleIntent(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}

	w := DefaultWeights()
	w.BrandMatch = -0.1
	w.SourceBoosts = map[string]float64{"spam": -3}
	err := w.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"brand_match", "source_boosts[spam]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
