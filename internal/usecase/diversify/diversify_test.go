package diversify

import (
	"fmt"
	"testing"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/match"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
)

func results(spec map[string]int) []result.Result {
	var out []result.Result
	for _, source := range []string{"avito", "drom", "telegram", "forum"} {
		for i := 0; i < spec[source]; i++ {
			c := listing.Candidate{
				Document:   listing.Document{SourceName: source, SourceURL: fmt.Sprintf("https://%s/%d", source, i)},
				Similarity: 0.5,
			}
			out = append(out, result.New(c, 0.5, match.NewSet()))
		}
	}
	return out
}

func TestDiversify_FlagsDominantSource(t *testing.T) {
	in := results(map[string]int{"avito": 12, "drom": 3})
	got := Diversify(in, 10)

	if len(got.Results) != 15 {
		t.Fatalf("len(results) = %d, want 15", len(got.Results))
	}
	for i, r := range got.Results {
		if r.SourceURL() != in[i].SourceURL() {
			t.Fatalf("result %d reordered", i)
		}
		wantDominant := r.SourceName() == "avito"
		if r.Dominant() != wantDominant {
			t.Errorf("%s dominant = %v, want %v", r.SourceURL(), r.Dominant(), wantDominant)
		}
	}

	want := []SourceCount{{Name: "avito", Count: 12, Dominant: true}, {Name: "drom", Count: 3}}
	if len(got.Sources) != len(want) {
		t.Fatalf("sources = %+v", got.Sources)
	}
	for i := range want {
		if got.Sources[i] != want[i] {
			t.Errorf("sources[%d] = %+v, want %+v", i, got.Sources[i], want[i])
		}
	}
}

func TestDiversify_NeverDrops(t *testing.T) {
	in := results(map[string]int{"avito": 7, "drom": 5, "telegram": 1, "forum": 2})
	for _, threshold := range []int{-5, 0, 1, 2, 5, 7, 100} {
		if got := Diversify(in, threshold); len(got.Results) != len(in) {
			t.Errorf("threshold %d: len = %d, want %d", threshold, len(got.Results), len(in))
		}
	}
}

func TestDiversify_DefaultThreshold(t *testing.T) {
	got := Diversify(results(map[string]int{"avito": 10, "drom": 9}), 0)
	if !got.Sources[0].Dominant || got.Sources[1].Dominant {
		t.Errorf("sources = %+v, want only avito dominant at default threshold", got.Sources)
	}
}

func TestDiversify_TiesSortedByName(t *testing.T) {
	got := Diversify(results(map[string]int{"telegram": 2, "drom": 2, "avito": 2}), 10)
	names := []string{got.Sources[0].Name, got.Sources[1].Name, got.Sources[2].Name}
	if names[0] != "avito" || names[1] != "drom" || names[2] != "telegram" {
		t.Errorf("order = %v", names)
	}
}

func TestDiversify_Empty(t *testing.T) {
	got := Diversify(nil, 10)
	if len(got.Results) != 0 || len(got.Sources) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
	if got.Sources == nil {
		t.Error("sources should be an empty slice, not nil")
	}
}
