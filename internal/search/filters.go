package search

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// matchesFileType reports whether relPath's extension is in types,
// case-insensitively and tolerant of a leading dot on either side, per
// spec.md §4.7's file_types filter.
func matchesFileType(relPath string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(relPath), "."))
	for _, want := range types {
		want = strings.ToLower(strings.TrimPrefix(want, "."))
		if want == ext {
			return true
		}
	}
	return false
}

// globToLike converts a shell glob (`*` and `?`) into a SQL LIKE pattern,
// escaping LIKE's own special characters (`%`, `_`) first so literal
// occurrences in the pattern don't become wildcards, per spec.md §4.7's
// path_pattern filter.
func globToLike(glob string) string {
	var b strings.Builder
	b.Grow(len(glob) + 4)
	for _, r := range glob {
		switch r {
		case '%', '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
			continue
		case '?':
			b.WriteByte('_')
			continue
		default:
			b.WriteRune(r)
			continue
		}
	}
	return b.String()
}

// matchesExcludePatterns reports whether relPath matches any of patterns,
// tried first as a doublestar fnmatch-style glob and then, for every
// pattern, as a plain substring test, per
// spec.md §4.7's exclude_patterns filter ("substring or fnmatch").
func matchesExcludePatterns(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if ok, err := doublestar.Match(p, relPath); err == nil && ok {
			return true
		}
		if strings.Contains(relPath, p) {
			return true
		}
	}
	return false
}
