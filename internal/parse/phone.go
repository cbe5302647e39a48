package parse

import (
	"regexp"
	"strings"
)

const maxPhoneDigits = 10

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	nonWordRe  = regexp.MustCompile(`[^\w]`)
)

var spokenDigits = map[string]string{
	"zero": "0", "oh": "0", "o": "0",
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9",
}

// NormalizePhone keeps only digits, capped at ten. Applying it twice gives the
// same result as applying it once.
func NormalizePhone(s string) string {
	digits := nonDigitRe.ReplaceAllString(s, "")
	if len(digits) > maxPhoneDigits {
		digits = digits[:maxPhoneDigits]
	}
	return digits
}

// ExtractPhone pulls a phone number out of free text. Written digits win when
// there are at least eight of them, otherwise spoken words such as
// "zero four double two" are converted.
func ExtractPhone(text string) string {
	digits := nonDigitRe.ReplaceAllString(text, "")
	if len(digits) >= 8 {
		return NormalizePhone(digits)
	}

	var out strings.Builder
	words := strings.Fields(strings.ToLower(text))
	for i := 0; i < len(words); i++ {
		w := nonWordRe.ReplaceAllString(words[i], "")
		switch {
		case (w == "double" || w == "triple") && i+1 < len(words):
			next := nonWordRe.ReplaceAllString(words[i+1], "")
			if d, ok := spokenDigits[next]; ok {
				n := 2
				if w == "triple" {
					n = 3
				}
				out.WriteString(strings.Repeat(d, n))
				i++
			}
		case isDigits(w):
			out.WriteString(w)
		default:
			if d, ok := spokenDigits[w]; ok {
				out.WriteString(d)
			}
		}
	}

	result := out.String()
	if result == "" {
		return NormalizePhone(digits)
	}
	return NormalizePhone(result)
}

// PhoneForSpeech spaces the digits out so the voice reads them one by one.
func PhoneForSpeech(s string) string {
	digits := NormalizePhone(s)
	return strings.Join(strings.Split(digits, ""), " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
