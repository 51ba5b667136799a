package search

import (
	"context"
	"regexp"
	"strings"
	"time"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

// maxRegexCandidates bounds the regex path's file scan, spec.md §4.7's
// "scans file contents via a capped LIMIT".
const maxRegexCandidates = 2000

// regexSearch implements spec.md §4.7 step 3: compile once, scan
// candidate files' content, rank by match count (+recency).
func regexSearch(ctx context.Context, store *storage.Kernel, opts Options) ([]Result, error) {
	flags := "(?i)"
	if opts.CaseSensitive {
		flags = ""
	}
	re, err := regexp.Compile(flags + opts.Query)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeInvalidArgs, err, "invalid regex")
	}

	rootIDs := toRootIDs(opts.RootIDs)
	candidates, err := store.ListCandidateFiles(ctx, rootIDs, maxRegexCandidates)
	if err != nil {
		return nil, err
	}

	var out []Result
	for _, c := range candidates {
		if !passesPathFilters(c.RelPath, opts) {
			continue
		}
		f, err := store.ReadFile(c.Path)
		if err != nil {
			continue
		}
		matches := re.FindAllIndex(f.Content, -1)
		if len(matches) == 0 {
			continue
		}
		score := float64(len(matches))
		if opts.RecencyBoost {
			score += recencyBonus(f.Mtime)
		}
		lineIdx := lineIndexAt(f.Content, matches[0][0])
		out = append(out, Result{
			Path:      c.Path.String(),
			RootID:    c.RootID.String(),
			Score:     score,
			HitReason: "regex match",
			Mtime:     f.Mtime,
			Snippet:   synthesizeSnippet(string(f.Content), lineIdx, re.FindString(string(f.Content)), opts.SnippetLines),
		})
	}
	return out, nil
}

func lineIndexAt(content []byte, byteOffset int) int {
	return strings.Count(string(content[:byteOffset]), "\n")
}

// recencyBonus rewards more-recently-modified files with a small score
// boost, capped so it never overtakes a genuinely stronger match-count
// signal, mirroring spec.md §4.7's "(+recency)" rule without a fixed
// constant to calibrate against upstream.
func recencyBonus(mtime time.Time) float64 {
	age := time.Since(mtime)
	if age < 0 {
		age = 0
	}
	days := age.Hours() / 24
	bonus := 5.0 - days*0.05
	if bonus < 0 {
		return 0
	}
	return bonus
}

func toRootIDs(ss []string) []types.RootID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]types.RootID, len(ss))
	for i, s := range ss {
		out[i] = types.RootID(s)
	}
	return out
}

func passesPathFilters(relPath string, opts Options) bool {
	if !matchesFileType(relPath, opts.FileTypes) {
		return false
	}
	if opts.PathPattern != "" {
		like := globToLike(opts.PathPattern)
		if !likeMatch(relPath, like) {
			return false
		}
	}
	if matchesExcludePatterns(relPath, opts.ExcludePatterns) {
		return false
	}
	return true
}

// likeMatch interprets a SQL LIKE pattern (% and _ wildcards, \-escaped
// literals) in Go, for filters applied after storage has already returned
// rows rather than as part of the SQL WHERE clause.
func likeMatch(s, like string) bool {
	var pattern strings.Builder
	escaped := false
	for _, r := range like {
		switch {
		case escaped:
			pattern.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			pattern.WriteString(".*")
		case r == '_':
			pattern.WriteString(".")
		default:
			pattern.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re, err := regexp.Compile("(?is)^" + pattern.String() + "$")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
