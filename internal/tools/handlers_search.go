package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/deckard/internal/search"
	"github.com/standardbeagle/deckard/internal/types"
)

func (r *Registry) handleSearch(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	opts := search.Options{
		Query:          args.GetString("query", ""),
		Repo:           args.GetString("repo", ""),
		Limit:          args.GetInt("limit", 0),
		Offset:         args.GetInt("offset", 0),
		FileTypes:      args.GetStringSlice("file_types"),
		PathPattern:    args.GetString("path_pattern", ""),
		UseRegex:       args.GetBool("use_regex", false),
		RecencyBoost:   args.GetBool("recency_boost", false),
		RootIDs:        []string{r.root.RootID.String()},
		AllowedRootIDs: []string{r.root.RootID.String()},
	}

	resp, err := search.Search(ctx, r.store, r.engine, opts)
	if err != nil {
		return errorResponse("search", err)
	}
	return jsonResponse(resp)
}

func (r *Registry) handleSearchSymbols(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	name := args.GetString("name", "")
	limit := args.GetInt("limit", 0)

	hits, err := r.store.SearchSymbolsByName(ctx, []types.RootID{r.root.RootID}, name, limit)
	if err != nil {
		return errorResponse("search_symbols", err)
	}
	return jsonResponse(map[string]any{"results": hits})
}

// grepAndReadResult pairs a content match with the file's full text, so a
// caller doing impact analysis never needs a second read_file round trip.
type grepAndReadResult struct {
	Path    string `json:"path"`
	RelPath string `json:"rel_path"`
	Mtime   string `json:"mtime"`
	Content string `json:"content"`
}

func (r *Registry) handleGrepAndRead(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	pattern := args.GetString("pattern", "")
	limit := args.GetInt("limit", 0)

	hits, err := r.store.SearchFilesByContentLike(ctx, []types.RootID{r.root.RootID}, pattern, limit)
	if err != nil {
		return errorResponse("grep_and_read", err)
	}

	out := make([]grepAndReadResult, 0, len(hits))
	for _, h := range hits {
		f, err := r.store.ReadFile(h.Path)
		if err != nil {
			continue
		}
		out = append(out, grepAndReadResult{
			Path: h.Path.String(), RelPath: h.RelPath,
			Mtime: f.Mtime.UTC().Format("2006-01-02T15:04:05Z"), Content: string(f.Content),
		})
	}
	return jsonResponse(map[string]any{"files": out})
}
