package util

import (
	"strings"
	"unicode/utf8"
)

// Coalesce returns the first non-zero value.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Slice returns the runes of s in [start, start+n), clamped to s.
func Slice(s string, start, n int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if start >= len(runes) || n <= 0 {
		return ""
	}
	end := min(start+n, len(runes))
	return string(runes[start:end])
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
