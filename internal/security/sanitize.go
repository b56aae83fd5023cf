package security

import "strings"

// Sanitize removes ASCII control bytes from content except newline,
// carriage return, and tab, preserving every Unicode codepoint >= U+0020.
func Sanitize(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if r == '\n' || r == '\r' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
