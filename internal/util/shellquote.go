package util

import "strings"

// ShellQuote quotes s for a POSIX shell. Strings made only of common safe
// characters are returned unchanged. Anything else goes through ShellEscape.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}
	return ShellEscape(s)
}

// ShellEscape always wraps s in single quotes. An embedded quote closes the
// quoted run, adds a backslash-escaped quote and reopens it.
func ShellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
