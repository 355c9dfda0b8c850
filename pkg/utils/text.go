// Package utils provides shared utilities for text handling and logging.
package utils

import (
	"strings"
	"unicode/utf8"
)

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Clip returns at most maxRunes runes of s. Multi-byte characters are never split.
// If maxRunes is 0 or negative, returns s unchanged.
func Clip(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// Truncate returns s clipped to maxLen runes, with "..." appended if clipped.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	clipped := Clip(s, maxLen)
	if clipped == s {
		return s
	}
	return clipped + "..."
}

// SizeKB returns n bytes as kilobytes rounded to two decimals.
func SizeKB(n int64) float64 {
	return float64((n*100+512)/1024) / 100
}
