package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeText drops control characters other than newline and tab and
// trims surrounding whitespace.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most maxRunes runes, marking the cut with "...".
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// Mask keeps the first visible characters of a secret for logs.
func Mask(s string, visible int) string {
	if s == "" {
		return ""
	}
	if len(s) <= visible*2 {
		return strings.Repeat("*", len(s))
	}
	return s[:visible] + strings.Repeat("*", len(s)-visible)
}
