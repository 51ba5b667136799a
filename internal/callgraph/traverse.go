package callgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

// edgeSource is the subset of *storage.Kernel traverse() needs.
type edgeSource interface {
	CallersOf(ctx context.Context, sid types.SymbolID, limit int) ([]storage.RelationEdge, error)
	CalleesOf(ctx context.Context, sid types.SymbolID, limit int) ([]storage.RelationEdge, error)
	FanIn(ctx context.Context, sid types.SymbolID) (int, error)
}

// budget tracks the shared node/edge/time ceiling spec.md §4.8 imposes
// across both traversal directions of a single CallGraph call.
type budget struct {
	maxNodes int
	maxEdges int
	deadline time.Time

	nodes int
	edges int

	truncated      bool
	truncateReason string

	visited map[string]bool // (direction, symbolID, path) cycle-detection key
}

func newBudget(opts Options) *budget {
	return &budget{
		maxNodes: opts.MaxNodes,
		maxEdges: opts.MaxEdges,
		deadline: time.Now().Add(time.Duration(opts.MaxTimeMs) * time.Millisecond),
		visited:  make(map[string]bool),
	}
}

func (b *budget) exhausted() (bool, string) {
	if time.Now().After(b.deadline) {
		return true, "max_time_ms"
	}
	if b.nodes >= b.maxNodes {
		return true, "max_nodes"
	}
	if b.edges >= b.maxEdges {
		return true, "max_edges"
	}
	return false, ""
}

func (b *budget) seen(direction string, sid types.SymbolID, path types.FileID) bool {
	key := fmt.Sprintf("%s|%s|%s", direction, sid, path)
	if b.visited[key] {
		return true
	}
	b.visited[key] = true
	return false
}

type queueItem struct {
	ref   storage.SymbolRef
	node  *Node
	depth int
}

// traverseDirection runs one BFS ("up" over CallersOf, "down" over
// CalleesOf) out to opts.Depth, applying the shared budget, cycle
// detection, per-edge confidence scoring, and include/exclude path
// filters, per spec.md §4.8.
func traverseDirection(ctx context.Context, store edgeSource, root storage.SymbolRef, direction string, opts Options, b *budget) *Node {
	rootNode := &Node{
		SymbolID: root.SymbolID, Name: root.Name, QualName: root.QualName,
		Kind: root.Kind, Path: root.Path, Line: root.Line, Confidence: 1.0,
	}
	b.visited[fmt.Sprintf("%s|%s|%s", direction, root.SymbolID, root.Path)] = true

	queue := []queueItem{{ref: root, node: rootNode, depth: 0}}
	for len(queue) > 0 {
		if done, reason := b.exhausted(); done {
			b.truncated = true
			b.truncateReason = reason
			break
		}
		item := queue[0]
		queue = queue[1:]
		if item.depth >= opts.Depth || item.depth >= opts.MaxDepth {
			continue
		}

		edges, err := fetchEdges(ctx, store, direction, item.ref.SymbolID, b.maxEdges-b.edges)
		if err != nil {
			continue
		}

		for _, e := range edges {
			if done, reason := b.exhausted(); done {
				b.truncated = true
				b.truncateReason = reason
				break
			}

			neighborSID, neighborName, neighborPath := neighborOf(direction, e)
			relPath := relPathOf(neighborPath.String())
			if !passesPathFilters(relPath, opts.IncludePaths, opts.ExcludePaths) {
				continue
			}
			if b.seen(direction, neighborSID, neighborPath) {
				continue
			}

			fanIn, _ := store.FanIn(ctx, e.ToSymbolID)
			conf, pruned := confidence(item.ref.Path.String(), e.ToPath.String(), fanIn)
			if pruned {
				continue
			}

			child := &Node{
				SymbolID: neighborSID, Name: neighborName, QualName: neighborName,
				Path: neighborPath, Line: e.Line, Confidence: conf, RelType: e.RelType,
			}
			item.node.Children = append(item.node.Children, child)
			b.nodes++
			b.edges++

			queue = append(queue, queueItem{
				ref:   storage.SymbolRef{SymbolID: neighborSID, Path: neighborPath, Name: neighborName, QualName: neighborName},
				node:  child,
				depth: item.depth + 1,
			})
		}
	}
	return rootNode
}

func fetchEdges(ctx context.Context, store edgeSource, direction string, sid types.SymbolID, remaining int) ([]storage.RelationEdge, error) {
	if remaining <= 0 {
		return nil, nil
	}
	if direction == "up" {
		return store.CallersOf(ctx, sid, remaining)
	}
	return store.CalleesOf(ctx, sid, remaining)
}

// neighborOf picks the side of the edge that isn't the symbol already in
// the queue: for "up" (callers) that's From*, for "down" (callees) it's
// To*.
func neighborOf(direction string, e storage.RelationEdge) (types.SymbolID, string, types.FileID) {
	if direction == "up" {
		return e.FromSymbolID, e.FromSymbol, e.FromPath
	}
	return e.ToSymbolID, e.ToSymbol, e.ToPath
}

func relPathOf(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
