package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies spec.md §4.7 step 1: NFKC, lowercase, collapse
// whitespace. golang.org/x/text is already in the dependency graph for the
// teacher's own stack; norm.NFKC is the standard library-adjacent way to
// do Unicode compatibility normalization rather than hand-rolling it.
func Normalize(q string) string {
	q = norm.NFKC.String(q)
	q = strings.ToLower(q)
	return collapseWhitespace(q)
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// isASCII reports whether s contains only ASCII runes, the eligibility
// check spec.md §4.7 requires before routing a query into FTS5.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
