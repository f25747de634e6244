package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxItemLength is the rune limit applied to item text before it is
// cached or sent.
const DefaultMaxItemLength = 200

// NormalizeKey turns raw item text into its cache key. Width variants and
// compatibility forms are unified by NFKC, case is folded, runs of whitespace
// become one space, and the result is cut to maxLen runes. A maxLen of zero
// or less disables truncation.
func NormalizeKey(text string, maxLen int) string {
	s := norm.NFKC.String(text)
	s = cases.Fold().String(s)
	s = strings.Join(strings.Fields(s), " ")

	if maxLen > 0 {
		s = truncateRunes(s, maxLen)
	}
	return s
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimRight(s[:i], " ")
		}
		count++
	}
	return s
}
