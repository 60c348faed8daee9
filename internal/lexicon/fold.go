package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var yoReplacer = strings.NewReplacer("ё", "е", "Ё", "е")

// Fold normalizes text for matching: NFKC, case folding, ё→е and collapsed whitespace.
// cases.Caser is stateful, so a fresh one is built per call.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = yoReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Words folds s and splits it on every rune that is neither a letter nor a digit.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
