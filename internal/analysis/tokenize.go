package analysis

import (
	"strings"
	"unicode"
)

// minTokenLen drops connective noise ("a", "of", "is") before scoring.
const minTokenLen = 3

// Tokenize lowercases text, strips punctuation and splits on whitespace.
// Tokens shorter than three characters are discarded. Empty input yields
// an empty slice.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, text)

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}
