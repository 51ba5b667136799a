package search

import (
	"context"
	"sort"

	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

func pathID(s string) types.FileID { return types.FileID(s) }

// Search runs the full spec.md §4.7 pipeline: normalize, infer intent,
// dispatch to the regex or hybrid path, sort, slice, and count.
func Search(ctx context.Context, store *storage.Kernel, engine fts.Engine, opts Options) (*Response, error) {
	opts = opts.withDefaults()
	opts.Query = Normalize(opts.Query)

	opts, err := enforceRootScope(opts)
	if err != nil {
		return nil, err
	}

	_ = classifyIntent(opts.Query) // currently informational; see DESIGN.md

	var results []Result
	if opts.UseRegex {
		results, err = regexSearch(ctx, store, opts)
	} else {
		results, err = hybridSearch(ctx, store, engine, opts)
		results = filterByPath(results, opts)
	}
	if err != nil {
		return nil, err
	}

	sortResults(results)

	total := len(results)
	if opts.TotalMode == TotalApprox {
		total = -1
	}

	start := opts.Offset
	if start > len(results) {
		start = len(results)
	}
	end := start + opts.Limit
	if end > len(results) {
		end = len(results)
	}

	return &Response{Results: results[start:end], Total: total}, nil
}

// filterByPath applies file_types/path_pattern/exclude_patterns to hybrid
// results after they are merged; the regex path applies the same filters
// to each candidate inside regexSearch.
func filterByPath(results []Result, opts Options) []Result {
	if len(opts.FileTypes) == 0 && opts.PathPattern == "" && len(opts.ExcludePatterns) == 0 {
		return results
	}
	out := results[:0]
	for _, r := range results {
		rel := relPathOf(r.Path)
		if !passesPathFilters(rel, opts) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func relPathOf(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// sortResults orders by (-score, -mtime, path ascending), spec.md §4.7
// step 5's deterministic tie-break.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Mtime.Equal(results[j].Mtime) {
			return results[i].Mtime.After(results[j].Mtime)
		}
		return results[i].Path < results[j].Path
	})
}
