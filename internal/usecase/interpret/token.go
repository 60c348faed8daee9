package interpret

import (
	"strconv"
	"strings"
	"unicode"
)

type kind uint8

const (
	kindWord kind = iota
	kindNumber
	kindSymbol
	kindPunct
)

// token is one lexical unit of a folded query.
type token struct {
	kind    kind
	text    string
	num     float64 // numbers only
	digits  int     // integer-part digit count, numbers only
	decimal bool
}

func (t token) isSymbol(s string) bool { return t.kind == kindSymbol && t.text == s }

// tokenize splits folded text into words, numbers, symbols and punctuation.
// Anything else (emoji, control runes) is dropped.
func tokenize(folded string) []token {
	rs := []rune(folded)
	var out []token
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isASCIIDigit(r):
			var t token
			t, i = scanNumber(rs, i)
			out = append(out, t)
		case unicode.IsLetter(r):
			j := i + 1
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) {
				j++
			}
			out = append(out, token{kind: kindWord, text: string(rs[i:j])})
			i = j
		case symbolOf(r) != "":
			out = append(out, token{kind: kindSymbol, text: symbolOf(r)})
			i++
		case unicode.IsPunct(r):
			out = append(out, token{kind: kindPunct, text: string(r)})
			i++
		default:
			i++
		}
	}
	return out
}

func symbolOf(r rune) string {
	switch r {
	case '$', '€', '₽', '<', '>':
		return string(r)
	case '-', '‐', '‑', '–', '—':
		return "-"
	}
	return ""
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func digitsEnd(rs []rune, i int) int {
	for i < len(rs) && isASCIIDigit(rs[i]) {
		i++
	}
	return i
}

// scanNumber reads "2", "2 000 000", "2,500,000", "1,5" or "2.5" starting at i.
// Spaced or comma groups merge only when the leading group has at most three digits
// and every following group has exactly three.
func scanNumber(rs []rune, i int) (token, int) {
	j := digitsEnd(rs, i)
	var b strings.Builder
	b.WriteString(string(rs[i:j]))

	if j-i <= 3 {
		for j+1 < len(rs) && (rs[j] == ' ' || rs[j] == ',') && digitsEnd(rs, j+1) == j+4 {
			b.WriteString(string(rs[j+1 : j+4]))
			j += 4
		}
	}
	intDigits := b.Len()

	decimal := false
	if j+1 < len(rs) && (rs[j] == '.' || rs[j] == ',') {
		end := digitsEnd(rs, j+1)
		n := end - (j + 1)
		if n >= 1 && (n <= 2 || (rs[j] == '.' && n <= 3)) {
			b.WriteByte('.')
			b.WriteString(string(rs[j+1 : end]))
			j = end
			decimal = true
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		v = 0
	}
	return token{kind: kindNumber, text: string(rs[i:j]), num: v, digits: intDigits, decimal: decimal}, j
}
