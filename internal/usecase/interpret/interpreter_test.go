package interpret

import (
	"reflect"
	"testing"
	"time"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

func fixedClock() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

func newTestInterpreter() *Interpreter {
	return New(lexicon.Default(), WithClock(fixedClock))
}

func strVal(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func intVal(p *int64) int64 {
	if p == nil {
		return -1
	}
	return *p
}

func TestInterpret_EndToEndBMW(t *testing.T) {
	q, residual := newTestInterpreter().Interpret("BMW до 2 млн, пробег до 50 тыс, без окраса")

	if strVal(q.Brand) != "BMW" {
		t.Errorf("brand = %s, want BMW", strVal(q.Brand))
	}
	if intVal(q.PriceMax) != 2_000_000 {
		t.Errorf("price_max = %d, want 2000000", intVal(q.PriceMax))
	}
	if intVal(q.MileageMax) != 50_000 {
		t.Errorf("mileage_max = %d, want 50000", intVal(q.MileageMax))
	}
	if !reflect.DeepEqual(q.Exclusions.Values(), []string{"окрас"}) {
		t.Errorf("exclusions = %v, want [окрас]", q.Exclusions.Values())
	}
	if q.PaintCondition != nil {
		t.Errorf("paint_condition = %s, want nil", strVal(q.PaintCondition))
	}
	if q.PriceMin != nil || q.MileageMin != nil || q.YearMin != nil || q.YearMax != nil {
		t.Error("unexpected lower bounds")
	}
	if residual != "" {
		t.Errorf("residual = %q, want empty", residual)
	}
}

func TestInterpret_Ranges(t *testing.T) {
	in := newTestInterpreter()

	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, q query.StructuredQuery)
	}{
		{
			name: "year and price ranges",
			raw:  "Toyota Camry 2015-2020 от 1 до 2 млн",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.YearMin) != 2015 || intVal(q.YearMax) != 2020 {
					t.Errorf("year = %d..%d, want 2015..2020", intVal(q.YearMin), intVal(q.YearMax))
				}
				if intVal(q.PriceMin) != 1_000_000 || intVal(q.PriceMax) != 2_000_000 {
					t.Errorf("price = %d..%d, want 1e6..2e6", intVal(q.PriceMin), intVal(q.PriceMax))
				}
			},
		},
		{
			name: "mileage lower bound from context",
			raw:  "мерседес с пробегом от 20 тыс",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.MileageMin) != 20_000 {
					t.Errorf("mileage_min = %d, want 20000", intVal(q.MileageMin))
				}
				if strVal(q.Brand) != "Mercedes-Benz" {
					t.Errorf("brand = %s, want Mercedes-Benz", strVal(q.Brand))
				}
			},
		},
		{
			name: "not older than",
			raw:  "кроссовер не старше 2015",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.YearMin) != 2015 || q.YearMax != nil {
					t.Errorf("year = %d..%d, want 2015..", intVal(q.YearMin), intVal(q.YearMax))
				}
			},
		},
		{
			name: "bare thousands above floor is price",
			raw:  "до 900 тыс",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.PriceMax) != 900_000 || q.MileageMax != nil {
					t.Errorf("price_max = %d mileage_max = %d", intVal(q.PriceMax), intVal(q.MileageMax))
				}
			},
		},
		{
			name: "bare thousands below floor is mileage",
			raw:  "до 90 тыс",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.MileageMax) != 90_000 || q.PriceMax != nil {
					t.Errorf("mileage_max = %d price_max = %d", intVal(q.MileageMax), intVal(q.PriceMax))
				}
			},
		},
		{
			name: "spaced thousands with currency",
			raw:  "до 2 500 000 ₽",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.PriceMax) != 2_500_000 {
					t.Errorf("price_max = %d, want 2500000", intVal(q.PriceMax))
				}
			},
		},
		{
			name: "decimal millions",
			raw:  "до 1,5 млн",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.PriceMax) != 1_500_000 {
					t.Errorf("price_max = %d, want 1500000", intVal(q.PriceMax))
				}
			},
		},
		{
			name: "k suffix with mileage context",
			raw:  "пробег до 100к",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.MileageMax) != 100_000 {
					t.Errorf("mileage_max = %d, want 100000", intVal(q.MileageMax))
				}
			},
		},
		{
			name: "exact year with unit",
			raw:  "камри 2018 года",
			check: func(t *testing.T, q query.StructuredQuery) {
				if intVal(q.YearMin) != 2018 || intVal(q.YearMax) != 2018 {
					t.Errorf("year = %d..%d, want 2018..2018", intVal(q.YearMin), intVal(q.YearMax))
				}
			},
		},
		{
			name: "inverted range drops the lower bound",
			raw:  "от 3 до 1 млн",
			check: func(t *testing.T, q query.StructuredQuery) {
				if q.PriceMin != nil || intVal(q.PriceMax) != 1_000_000 {
					t.Errorf("price = %d..%d, want ..1000000", intVal(q.PriceMin), intVal(q.PriceMax))
				}
			},
		},
		{
			name: "year outside window is ignored",
			raw:  "1950",
			check: func(t *testing.T, q query.StructuredQuery) {
				if q.HasFilters() {
					t.Errorf("unexpected filters: %+v", q)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := in.Interpret(tt.raw)
			tt.check(t, q)
		})
	}
}

func TestInterpret_BrandAndModel(t *testing.T) {
	in := newTestInterpreter()

	q, _ := in.Interpret("BMW X5 2018 дизель до 3 млн")
	if strVal(q.Brand) != "BMW" || strVal(q.Model) != "X5" {
		t.Errorf("brand/model = %s/%s, want BMW/X5", strVal(q.Brand), strVal(q.Model))
	}
	if intVal(q.YearMin) != 2018 || intVal(q.YearMax) != 2018 {
		t.Errorf("year = %d..%d, want 2018", intVal(q.YearMin), intVal(q.YearMax))
	}
	if strVal(q.Fuel) != "diesel" {
		t.Errorf("fuel = %s, want diesel", strVal(q.Fuel))
	}
	if intVal(q.PriceMax) != 3_000_000 {
		t.Errorf("price_max = %d, want 3000000", intVal(q.PriceMax))
	}

	q, _ = in.Interpret("камри до 2 млн")
	if strVal(q.Brand) != "Toyota" || strVal(q.Model) != "Camry" {
		t.Errorf("model should infer brand, got %s/%s", strVal(q.Brand), strVal(q.Model))
	}

	q, _ = in.Interpret("audi x5")
	if strVal(q.Brand) != "Audi" || q.Model != nil {
		t.Errorf("conflicting model should be dropped, got %s/%s", strVal(q.Brand), strVal(q.Model))
	}

	q, _ = in.Interpret("бмв или ауди")
	if strVal(q.Brand) != "BMW" {
		t.Errorf("first brand wins, got %s", strVal(q.Brand))
	}
}

func TestInterpret_English(t *testing.T) {
	q, _ := newTestInterpreter().Interpret("BMW X5 diesel under 3 mln")
	if strVal(q.Brand) != "BMW" || strVal(q.Fuel) != "diesel" || intVal(q.PriceMax) != 3_000_000 {
		t.Errorf("got brand=%s fuel=%s price_max=%d", strVal(q.Brand), strVal(q.Fuel), intVal(q.PriceMax))
	}
}

func TestInterpret_Categorical(t *testing.T) {
	q, residual := newTestInterpreter().Interpret("белый дизельный кроссовер в Москве")
	if strVal(q.Color) != "white" || strVal(q.Fuel) != "diesel" || strVal(q.Region) != "Москва" {
		t.Errorf("got color=%s fuel=%s region=%s", strVal(q.Color), strVal(q.Fuel), strVal(q.Region))
	}
	if !reflect.DeepEqual(q.Keywords.Values(), []string{"кроссовер"}) {
		t.Errorf("keywords = %v, want [кроссовер]", q.Keywords.Values())
	}
	if residual != "кроссовер" {
		t.Errorf("residual = %q, want кроссовер", residual)
	}
}

func TestInterpret_Negations(t *testing.T) {
	q, _ := newTestInterpreter().Interpret("не битый, без окраса, не такси")
	want := []string{"бит", "окрас", "такси"}
	if !reflect.DeepEqual(q.Exclusions.Values(), want) {
		t.Errorf("exclusions = %v, want %v", q.Exclusions.Values(), want)
	}
	if q.Condition != nil || q.PaintCondition != nil {
		t.Error("negated terms must not fill positive fields")
	}
}

func TestInterpret_KeywordsAndResidual(t *testing.T) {
	q, residual := newTestInterpreter().Interpret("хочу BMW X5 с панорамой")
	if !reflect.DeepEqual(q.Keywords.Values(), []string{"панорамой"}) {
		t.Errorf("keywords = %v", q.Keywords.Values())
	}
	if residual != "панорамой" {
		t.Errorf("residual = %q, want панорамой", residual)
	}
}

func TestInterpret_Unparsable(t *testing.T) {
	in := newTestInterpreter()
	for _, raw := range []string{"", "   ", "🚗🚗🚗", "\u202e\u0000\ufeff", "!!!???"} {
		q, residual := in.Interpret(raw)
		if q.HasFilters() || q.Keywords.Len() != 0 {
			t.Errorf("Interpret(%q) extracted %+v", raw, q)
		}
		if residual != raw {
			t.Errorf("Interpret(%q) residual = %q, want raw", raw, residual)
		}
	}
}

func TestInterpret_NeverInvertsRanges(t *testing.T) {
	in := newTestInterpreter()
	inputs := []string{
		"от 2020 до 2010",
		"пробег от 200 до 100 тыс",
		"от 5 млн до 1 млн",
		"2022-2015",
		"до до до 1 2 3 млн млн",
		"от - до - 999999999999999999999999 млн",
		"x5 x5 x5 2 000 000 000 000 000 ₽",
		"ёЁ ＢＭＷ　Ｘ５",
	}
	for _, raw := range inputs {
		q, _ := in.Interpret(raw)
		if q.YearMin != nil && q.YearMax != nil && *q.YearMin > *q.YearMax {
			t.Errorf("%q: inverted year", raw)
		}
		if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
			t.Errorf("%q: inverted price", raw)
		}
		if q.MileageMin != nil && q.MileageMax != nil && *q.MileageMin > *q.MileageMax {
			t.Errorf("%q: inverted mileage", raw)
		}
	}
}

func TestInterpret_Deterministic(t *testing.T) {
	in := newTestInterpreter()
	raw := "Toyota Camry 2015-2020 от 1 до 2 млн, не битый, черный"
	q1, r1 := in.Interpret(raw)
	q2, r2 := in.Interpret(raw)
	if !reflect.DeepEqual(q1, q2) || r1 != r2 {
		t.Error("Interpret is not deterministic")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"BMW до 2 млн":   LangRussian,
		"BMW under 2000": LangEnglish,
		"12345 !!":       LangUnknown,
		"":               LangUnknown,
		"ab аб":          LangUnknown,
	}
	for in, want := range tests {
		if got := DetectLanguage(in); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenize(t *testing.T) {
	toks := tokenize(lexicon.Fold("до 2 000 000, 1,5 млн; 2,500 x5 mercedes-benz"))
	var got []string
	for _, tk := range toks {
		got = append(got, tk.text)
	}
	want := []string{"до", "2 000 000", ",", "1,5", "млн", ";", "2,500", "x5", "mercedes", "-", "benz"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	if toks[1].num != 2_000_000 || toks[3].num != 1.5 || toks[6].num != 2500 {
		t.Errorf("values = %v %v %v", toks[1].num, toks[3].num, toks[6].num)
	}
}
