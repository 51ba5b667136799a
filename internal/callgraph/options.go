// Package callgraph implements component H: symbol resolution, bounded
// bidirectional traversal of the symbol_relations table, per-edge
// confidence scoring, and ASCII tree rendering, per spec.md §4.8.
//
// Grounded on the teacher's internal/semantic package for fuzzy matching
// (fuzzy_matcher.go wraps hbollon/go-edlib the same way this package's
// resolve.go does) generalized from term similarity onto symbol-name
// similarity; the traversal/confidence/rendering logic itself has no
// teacher analogue (the teacher has no call-graph concept) and is built
// directly from spec.md §4.8's literal rules.
package callgraph

import "github.com/standardbeagle/deckard/internal/types"

// Options configures one CallGraph call, spec.md §4.8's input set.
type Options struct {
	Symbol   string
	SymbolID string
	Path     string
	Repo     string
	RootIDs  []string

	Depth          int
	IncludePaths   []string
	ExcludePaths   []string
	MaxNodes       int
	MaxEdges       int
	MaxDepth       int
	MaxTimeMs      int
	SortBy         string // "line" (default) or "name"

	// PluginDir, when non-empty, is scanned for augment_neighbors /
	// filter_neighbors .so plugins (spec.md §4.8). Empty disables plugin
	// loading entirely.
	PluginDir string
}

const (
	defaultMaxNodes  = 400
	defaultMaxEdges  = 1200
	defaultMaxTimeMs = 2000
	defaultDepth     = 2
)

func (o Options) withDefaults() Options {
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
	if o.MaxEdges <= 0 {
		o.MaxEdges = defaultMaxEdges
	}
	if o.MaxTimeMs <= 0 {
		o.MaxTimeMs = defaultMaxTimeMs
	}
	if o.Depth <= 0 {
		o.Depth = defaultDepth
	}
	if o.MaxDepth <= 0 || o.MaxDepth > o.Depth {
		o.MaxDepth = o.Depth
	}
	if o.SortBy != "name" {
		o.SortBy = "line"
	}
	return o
}

// Quality is spec.md §4.8's graph_quality classification.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMed    Quality = "med"
	QualityHigh   Quality = "high"
)

// Node is one resolved symbol in the rendered tree.
type Node struct {
	SymbolID      types.SymbolID
	Name          string
	QualName      string
	Kind          types.SymbolKind
	Path          types.FileID
	Line          int
	Confidence    float64
	RelType       types.RelType
	Children      []*Node
}

// Response is CallGraph's full output, spec.md §4.8's output shape.
type Response struct {
	Symbol         string
	SymbolID       string
	Path           string
	Candidates     []Candidate
	Upstream       *Node
	Downstream     *Node
	Tree           string
	Truncated      bool
	TruncateReason string
	GraphQuality   Quality
	QualityScore   int
	Precision      string
	Meta           map[string]any
	Summary        string
	ScopeReason    string
	PluginWarnings []string
}

// Candidate is one ambiguous resolution hit, returned instead of trees
// when Resolve finds more than one match and no path narrows it.
type Candidate struct {
	SymbolID types.SymbolID
	Name     string
	QualName string
	Path     types.FileID
	Kind     types.SymbolKind
}
