// Package format provides text helpers shared by the table output and the TUI.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// ansiRegex matches SGR escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const ellipsis = "..."

// StripAnsi removes ANSI escape sequences from a string.
func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// DisplayWidth returns the number of terminal columns s occupies, ignoring
// color codes. East Asian wide runes count as two columns.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(StripAnsi(s))
}

// Truncate shortens plain text to at most maxWidth columns, ending with
// "..." when anything was cut. Color codes are dropped from truncated text.
func Truncate(s string, maxWidth int) string {
	if DisplayWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(ellipsis) {
		return ellipsis[:max(maxWidth, 0)]
	}
	return runewidth.Truncate(StripAnsi(s), maxWidth, ellipsis)
}

// PadRight pads s with spaces to width visible columns.
func PadRight(s string, width int) string {
	w := DisplayWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Fit truncates then pads so s occupies exactly width columns.
func Fit(s string, width int) string {
	return PadRight(Truncate(s, width), width)
}

// Stars renders a star count compactly: 950, 1.2k, 18k, 3.4M.
func Stars(n int) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 10_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1000)) + "k"
	case n < 1_000_000:
		return fmt.Sprintf("%dk", n/1000)
	default:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
