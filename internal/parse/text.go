package parse

import (
	"strings"
	"unicode"
)

// TitleCase capitalises the first letter of every word, including letters
// after an apostrophe or hyphen ("o'brien" becomes "O'Brien").
func TitleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// NormalizeName lowercases and collapses whitespace for comparisons.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
