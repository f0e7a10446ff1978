// Package util provides small helpers shared across intersim.
package util

import (
	"strings"
	"unicode"
)

// SanitizeFileName replaces characters that are unsafe in file names with
// underscores and trims the result. An empty result becomes "run".
func SanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "run"
	}
	return out
}

// LaneLetter maps a lane file index to its letter (0 is "a").
func LaneLetter(i int) string {
	return string(rune('a' + i))
}
