package callgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

const maxCandidates = 50
const fuzzyTopN = 3
const fuzzyMaxEdits = 2

// resolver is the subset of *storage.Kernel resolve.go needs, narrowed so
// tests can fake it without a real database.
type resolver interface {
	FindSymbolByID(ctx context.Context, id types.SymbolID) (storage.SymbolRef, bool, error)
	FindSymbolsByName(ctx context.Context, name, path, repo string, rootIDs []types.RootID, limit int) ([]storage.SymbolRef, error)
	CandidateSymbolNames(ctx context.Context, rootIDs []types.RootID, repo string, limit int) ([]string, error)
}

// resolveResult is what resolve() hands back to CallGraph: either a single
// bound symbol ready for traversal, or a candidate list the caller must
// disambiguate (spec.md §4.8: "if multiple and no path provided, return
// the candidate list and empty trees").
type resolveResult struct {
	bound       *storage.SymbolRef
	candidates  []storage.SymbolRef
	scopeReason string
}

// resolve implements spec.md §4.8's resolution rule: exact symbol_id match
// first, else name/qualname lookup scoped to root_ids/repo/path, falling
// back to a fuzzy top-3 lookup when nothing matches exactly.
func resolve(ctx context.Context, store resolver, opts Options) (resolveResult, error) {
	if opts.SymbolID != "" {
		ref, ok, err := store.FindSymbolByID(ctx, types.SymbolID(opts.SymbolID))
		if err != nil {
			return resolveResult{}, err
		}
		if ok {
			return resolveResult{bound: &ref}, nil
		}
		return resolveResult{}, fmt.Errorf("symbol_id %q not found", opts.SymbolID)
	}

	if opts.Symbol == "" {
		return resolveResult{}, fmt.Errorf("symbol or symbol_id required")
	}

	rootIDs := toRootIDs(opts.RootIDs)
	exact, err := store.FindSymbolsByName(ctx, opts.Symbol, opts.Path, opts.Repo, rootIDs, maxCandidates)
	if err != nil {
		return resolveResult{}, err
	}
	if len(exact) == 1 {
		return resolveResult{bound: &exact[0]}, nil
	}
	if len(exact) > 1 {
		if opts.Path != "" {
			// Path was provided but the exact-match query already applied
			// it; multiple hits here means the same name legitimately
			// repeats (e.g. method overrides) within that one path —
			// still ambiguous, so surface the candidate list.
			return resolveResult{candidates: exact}, nil
		}
		return resolveResult{candidates: exact}, nil
	}

	// No exact match: fuzzy fallback, spec.md §4.8's "top 3" rule.
	names, err := store.CandidateSymbolNames(ctx, rootIDs, opts.Repo, 0)
	if err != nil {
		return resolveResult{}, err
	}
	best := fuzzyTopNames(opts.Symbol, names, fuzzyTopN)
	if len(best) == 0 {
		return resolveResult{}, fmt.Errorf("no symbol matching %q", opts.Symbol)
	}

	var merged []storage.SymbolRef
	for _, name := range best {
		hits, err := store.FindSymbolsByName(ctx, name, opts.Path, opts.Repo, rootIDs, maxCandidates)
		if err != nil {
			return resolveResult{}, err
		}
		merged = append(merged, hits...)
	}
	if len(merged) == 0 {
		return resolveResult{}, fmt.Errorf("no symbol matching %q", opts.Symbol)
	}
	reason := fmt.Sprintf("no exact match for %q; fuzzy-matched %v (<=%d edits)", opts.Symbol, best, fuzzyMaxEdits)
	if len(merged) == 1 {
		return resolveResult{bound: &merged[0], scopeReason: reason}, nil
	}
	return resolveResult{candidates: merged, scopeReason: reason}, nil
}

// fuzzyTopNames ranks candidates by Levenshtein similarity to target using
// go-edlib (grounded on the teacher's semantic.FuzzyMatcher.levenshteinSimilarity),
// keeping only those within fuzzyMaxEdits edits, then returns the top n names.
func fuzzyTopNames(target string, candidates []string, n int) []string {
	type scored struct {
		name string
		sim  float64
	}
	var ranked []scored
	for _, c := range candidates {
		if c == target {
			continue
		}
		sim, err := edlib.StringsSimilarity(target, c, edlib.Levenshtein)
		if err != nil {
			continue
		}
		maxLen := len(target)
		if len(c) > maxLen {
			maxLen = len(c)
		}
		if maxLen == 0 {
			continue
		}
		// go-edlib's Levenshtein similarity is already 1 - distance/maxLen;
		// recover the edit count to apply the spec's literal "<=2 edits" cap.
		edits := (1 - sim) * float64(maxLen)
		if edits > fuzzyMaxEdits+0.5 {
			continue
		}
		ranked = append(ranked, scored{name: c, sim: sim})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}
	return out
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
