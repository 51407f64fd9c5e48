package utils

import "unicode/utf8"

// TruncateBytes shortens s to at most max bytes without splitting a
// multi-byte rune.
func TruncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
