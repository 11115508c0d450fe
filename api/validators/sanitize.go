package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, folds control characters and runs of whitespace
// into single spaces, and caps the result at maxLen characters. Customer text
// such as cancellation reasons is often non-ASCII, so the cap counts runes.
func SanitizeString(input string, maxLen int) string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	cleaned := strings.Join(fields, " ")
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
