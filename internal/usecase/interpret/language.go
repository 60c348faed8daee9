package interpret

import "unicode"

// Query languages reported in search debug output.
const (
	LangRussian = "ru"
	LangEnglish = "en"
	LangUnknown = "unknown"
)

// DetectLanguage guesses the query language from its dominant script.
// Mixed input goes to the majority script; a tie or no letters is unknown.
func DetectLanguage(raw string) string {
	var cyrillic, latin int
	for _, r := range raw {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case cyrillic > latin:
		return LangRussian
	case latin > cyrillic:
		return LangEnglish
	default:
		return LangUnknown
	}
}
