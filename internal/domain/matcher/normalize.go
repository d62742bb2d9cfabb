package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minSignificantLen gates containment and token overlap.
const minSignificantLen = 4

// Normalize lower-cases s, strips diacritics, turns every rune outside
// [a-z0-9] into a space, collapses runs of spaces and trims.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(stripped))
	space := true // suppresses leading spaces
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokens splits a normalized string into tokens of at least four runes.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minSignificantLen {
			out = append(out, f)
		}
	}
	return out
}

// contains reports whether the shorter of a and b is a substring of the longer
// and is long enough to be significant.
func contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return utf8.RuneCountInString(short) >= minSignificantLen && strings.Contains(long, short)
}
