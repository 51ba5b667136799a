package search

import (
	"fmt"
	"strings"
)

// snippetMaxBytes bounds synthesized snippet size, spec.md §4.7's
// SNIPPET_MAX_BYTES; no concrete number is given upstream, so this picks
// a value generous enough for a handful of source lines without letting
// one huge minified line blow up a response.
const snippetMaxBytes = 2048

const highlightOpen = "\x02"
const highlightClose = "\x03"

// synthesizeSnippet takes content (which it splits into lines), the 0-based
// line index of the first match, and the matched term, and emits a
// ±lines window with 1-based "Ln:" prefixes and the term highlighted
// between marker bytes the caller strips, per spec.md §4.7.
func synthesizeSnippet(content string, matchLine int, term string, lines int) string {
	all := strings.Split(content, "\n")
	if matchLine < 0 || matchLine >= len(all) {
		return ""
	}

	start := matchLine - lines
	if start < 0 {
		start = 0
	}
	end := matchLine + lines
	if end >= len(all) {
		end = len(all) - 1
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		line := all[i]
		if i == matchLine && term != "" {
			line = highlightTerm(line, term)
		}
		b.WriteString(fmt.Sprintf("Ln%d: %s\n", i+1, line))
		if b.Len() > snippetMaxBytes {
			return truncateSnippet(b.String(), matchLine-start)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func highlightTerm(line, term string) string {
	lower := strings.ToLower(line)
	termLower := strings.ToLower(term)
	idx := strings.Index(lower, termLower)
	if idx < 0 {
		return line
	}
	return line[:idx] + highlightOpen + line[idx:idx+len(term)] + highlightClose + line[idx+len(term):]
}

// truncateSnippet keeps a window around the match line when the naive
// accumulation above overruns snippetMaxBytes, preserving the match
// itself rather than truncating from the end blindly.
func truncateSnippet(full string, matchOffsetLines int) string {
	lines := strings.Split(strings.TrimSuffix(full, "\n"), "\n")
	if matchOffsetLines < 0 || matchOffsetLines >= len(lines) {
		if len(full) > snippetMaxBytes {
			return full[:snippetMaxBytes]
		}
		return full
	}
	var b strings.Builder
	b.WriteString(lines[matchOffsetLines])
	lo, hi := matchOffsetLines-1, matchOffsetLines+1
	for b.Len() < snippetMaxBytes && (lo >= 0 || hi < len(lines)) {
		if lo >= 0 {
			b.WriteString("\n" + lines[lo])
			lo--
		}
		if hi < len(lines) {
			b.WriteString("\n" + lines[hi])
			hi++
		}
	}
	out := b.String()
	if len(out) > snippetMaxBytes {
		out = out[:snippetMaxBytes]
	}
	return out
}

// StripHighlightMarkers removes the highlight marker bytes a caller that
// doesn't want inline highlighting can apply to a Result.Snippet.
func StripHighlightMarkers(s string) string {
	s = strings.ReplaceAll(s, highlightOpen, "")
	return strings.ReplaceAll(s, highlightClose, "")
}
