package callgraph

import (
	"context"
	"fmt"

	"github.com/standardbeagle/deckard/internal/types"
)

// Store is what *storage.Kernel provides CallGraph; narrowed to an
// interface so tests can substitute a fake.
type Store interface {
	resolver
	edgeSource
	FileSize(ctx context.Context, path types.FileID) (int64, error)
}

// CallGraph implements spec.md §4.8 end to end: resolve the target
// symbol, run the up/down BFS under a shared budget, score and render the
// result.
func CallGraph(ctx context.Context, store Store, opts Options) (*Response, error) {
	opts = opts.withDefaults()

	res, err := resolve(ctx, store, opts)
	if err != nil {
		return nil, err
	}
	if res.bound == nil {
		candidates := make([]Candidate, len(res.candidates))
		for i, c := range res.candidates {
			candidates[i] = Candidate{SymbolID: c.SymbolID, Name: c.Name, QualName: c.QualName, Path: c.Path, Kind: c.Kind}
		}
		return &Response{
			Candidates:  candidates,
			ScopeReason: res.scopeReason,
			Meta:        map[string]any{"ambiguous": true},
		}, nil
	}
	root := *res.bound

	b := newBudget(opts)
	upstream := traverseDirection(ctx, store, root, "up", opts, b)
	downstream := traverseDirection(ctx, store, root, "down", opts, b)

	plugins, warnings := loadPlugins(opts.PluginDir)
	applyPlugins(plugins, root.QualName, upstream)
	applyPlugins(plugins, root.QualName, downstream)

	relPath := relPathOf(root.Path.String())
	hint := precisionHint(relPath)
	fileSize, _ := store.FileSize(ctx, root.Path)
	nodeCount := 1 + b.nodes

	quality := graphQuality(b.truncated, len(upstream.Children) == 0, len(downstream.Children) == 0, nodeCount)
	score := qualityScore(hint, nodeCount, fileSize)

	tree := renderTree(root.QualName, upstream, downstream, opts.SortBy, hint, nodeCount)
	summary := fmt.Sprintf("%s: %d caller(s), %d callee(s)", root.QualName, len(upstream.Children), len(downstream.Children))

	return &Response{
		Symbol:         root.QualName,
		SymbolID:       root.SymbolID.String(),
		Path:           root.Path.String(),
		Upstream:       upstream,
		Downstream:     downstream,
		Tree:           tree,
		Truncated:      b.truncated,
		TruncateReason: b.truncateReason,
		GraphQuality:   quality,
		QualityScore:   score,
		Precision:      hint,
		Meta:           map[string]any{"nodes": nodeCount, "edges": b.edges},
		Summary:        summary,
		ScopeReason:    res.scopeReason,
		PluginWarnings: warnings,
	}, nil
}
