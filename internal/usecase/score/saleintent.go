package score

import (
	"regexp"
	"strings"

	"github.com/PonchoGAD/auto-search-mvp/internal/lexicon"
)

var pricePattern = regexp.MustCompile(`\d[\d\s.,]*\s*(?:₽|\$|€|руб|тыс|млн|usd|eur)`)

// saleIntentScore rates how much raw listing text reads like an offer to sell:
// +2 for a selling phrase, +1 for a price mention, -2 for a question or repair thread.
func saleIntentScore(lex *lexicon.Lexicon, raw string) int {
	if raw == "" {
		return 0
	}
	folded := lexicon.Fold(raw)
	padded := " " + strings.Join(lexicon.Words(folded), " ") + " "
	sale := lex.SaleIntent()

	score := 0
	if containsPhrase(padded, sale.Positive) {
		score += 2
	}
	if pricePattern.MatchString(folded) {
		score++
	}
	if containsPhrase(padded, sale.Negative) {
		score -= 2
	}
	return score
}

// HasSaleIntent reports whether raw text crosses the lexicon's sale-intent threshold.
func HasSaleIntent(lex *lexicon.Lexicon, raw string) bool {
	return saleIntentScore(lex, raw) >= lex.SaleIntent().MinScore
}

func containsPhrase(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+strings.Join(lexicon.Words(p), " ")+" ") {
			return true
		}
	}
	return false
}
