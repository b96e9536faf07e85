package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateString cuts s to at most maxLen bytes without splitting a UTF-8
// sequence.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// NormalizeNewlines converts CRLF to LF so output from any platform compares equal.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
