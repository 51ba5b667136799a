package callgraph

import "github.com/bmatcuk/doublestar/v4"

// passesPathFilters implements spec.md §4.8's include_paths/exclude_paths
// rule: fnmatch-style globs, and a node with an empty path is always
// excluded.
func passesPathFilters(relPath string, include, exclude []string) bool {
	if relPath == "" {
		return false
	}
	if len(include) > 0 && !matchesAny(relPath, include) {
		return false
	}
	if matchesAny(relPath, exclude) {
		return false
	}
	return true
}

func matchesAny(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if ok, err := doublestar.Match(p, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
