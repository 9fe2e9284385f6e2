// Package util provides small string helpers shared by the terminal views.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Preview collapses all whitespace in s to single spaces and truncates the
// result to maxLen runes, adding "..." if truncated. It turns a multi-line
// backend answer into a one-line summary.
func Preview(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxLen <= 3 {
		if s == "" {
			return ""
		}
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if truncated.
// ANSI escape codes and wide characters are accounted for, so styled
// lines can be fitted to the terminal.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}
