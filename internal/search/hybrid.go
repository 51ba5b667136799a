package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

// rootIDFromPath extracts the "root-<hash>" prefix from a FileID
// ("<rootID>/<relPath>"), falling back to the legacy bare-path convention
// (no prefix) spec.md §4.7's root_ids filter exempts.
func rootIDFromPath(path string) types.RootID {
	if types.LegacyRootID(path) {
		return ""
	}
	if idx := strings.IndexByte(path, '/'); idx > 0 {
		return types.RootID(path[:idx])
	}
	return ""
}

const symbolSeedScore = 1000.0
const symbolOnFTSHitBonus = 1200.0
const contextSymbolBonus = 0.2

type candidate struct {
	path      string
	rootID    string
	score     float64
	hitReason string
	hasSymbol bool
	hasFTS    bool
}

// hybridSearch implements spec.md §4.7 step 4: a symbol-name seed pass,
// an FTS-or-LIKE content pass, and a union merge across both by path.
func hybridSearch(ctx context.Context, store *storage.Kernel, engine fts.Engine, opts Options) ([]Result, error) {
	rootIDs := toRootIDs(opts.RootIDs)
	byPath := make(map[string]*candidate)

	if opts.TotalMode != TotalApprox {
		symbolHits, err := store.SearchSymbolsByName(ctx, rootIDs, opts.Query, opts.Limit*2)
		if err != nil {
			return nil, err
		}
		for _, h := range symbolHits {
			score := symbolSeedScore
			reason := fmt.Sprintf("Symbol: %s %s", h.Kind, h.Name)
			c := &candidate{path: h.Path.String(), rootID: h.RootID.String(), score: score, hitReason: reason, hasSymbol: true}
			byPath[c.path] = c
		}
	}

	ftsEligible := engine.Status().Ready && len(opts.Query) >= 3 && isASCII(opts.Query)

	var contentPaths []storage.FileHit
	if ftsEligible {
		hits, err := engine.Search(ctx, opts.Query, opts.Limit*2)
		if err == nil {
			for _, h := range hits {
				contentPaths = append(contentPaths, storage.FileHit{
					Path:   pathID(h.Path),
					RootID: rootIDFromPath(h.Path),
				})
			}
		}
	}
	if !ftsEligible || len(contentPaths) == 0 {
		fast, err := store.SearchFilesByPathLike(ctx, rootIDs, opts.Query, opts.Limit*2)
		if err != nil {
			return nil, err
		}
		contentPaths = append(contentPaths, fast...)
		if opts.TotalMode == TotalExact || len(fast) < opts.Limit {
			slow, err := store.SearchFilesByContentLike(ctx, rootIDs, opts.Query, opts.Limit*2)
			if err != nil {
				return nil, err
			}
			contentPaths = append(contentPaths, slow...)
		}
	}

	seen := make(map[string]bool)
	for _, fh := range contentPaths {
		path := fh.Path.String()
		if seen[path] {
			continue
		}
		seen[path] = true

		if existing, ok := byPath[path]; ok {
			// A symbol-seeded path also matched content: combine scores
			// and prefix the hit reason, per spec.md §4.7's merge rule.
			existing.score += symbolOnFTSHitBonus
			existing.hasFTS = true
			existing.hitReason = existing.hitReason + " + content match"
			continue
		}

		c := &candidate{path: path, rootID: fh.RootID.String(), score: 1.0, hitReason: "content match", hasFTS: true}
		if ctxSym, bonus := contextSymbolFor(ctx, store, fh.Path, opts.Query); ctxSym != "" {
			c.hitReason = fmt.Sprintf("content match (near %s)", ctxSym)
			c.score += bonus
		}
		byPath[path] = c
	}

	out := make([]Result, 0, len(byPath))
	for path, c := range byPath {
		content, mtime, err := store.FileContentAndMtime(ctx, pathID(path))
		if err != nil {
			continue
		}
		if opts.RecencyBoost {
			c.score += recencyBonus(mtime)
		}
		out = append(out, Result{
			Path:      c.path,
			RootID:    c.rootID,
			Score:     c.score,
			HitReason: c.hitReason,
			Mtime:     mtime,
			Snippet:   snippetForQuery(content, opts),
		})
	}
	return out, nil
}

func snippetForQuery(content string, opts Options) string {
	line := findFirstMatchLine(content, opts.Query)
	if line < 0 {
		return ""
	}
	return synthesizeSnippet(content, line, opts.Query, opts.SnippetLines)
}

func findFirstMatchLine(content, query string) int {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, strings.ToLower(query))
	if idx < 0 {
		return -1
	}
	return strings.Count(content[:idx], "\n")
}

// contextSymbolFor returns the nearest enclosing symbol's qualified name
// for path's actual matched line (the same line snippetForQuery anchors
// its snippet on), plus the +0.2 bonus spec.md §4.7 awards when one is
// found.
func contextSymbolFor(ctx context.Context, store *storage.Kernel, path interface{ String() string }, query string) (string, float64) {
	fid := pathID(path.String())
	content, _, err := store.FileContentAndMtime(ctx, fid)
	if err != nil {
		return "", 0
	}
	line := findFirstMatchLine(content, query)
	if line < 0 {
		return "", 0
	}
	hits, err := store.SymbolsForPathAbove(ctx, fid, line+1)
	if err != nil || len(hits) == 0 {
		return "", 0
	}
	return hits[0].QualName, contextSymbolBonus
}
