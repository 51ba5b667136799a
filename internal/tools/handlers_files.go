package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

func (r *Registry) handleReadFile(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	rel := args.GetString("path", "")
	if rel == "" {
		return errorResponse("read_file", deckerrors.New(deckerrors.CodeInvalidArgs, "path is required"))
	}

	f, err := r.store.ReadFile(types.NewFileID(r.root.RootID, rel))
	if err != nil {
		return errorResponse("read_file", err)
	}
	return jsonResponse(map[string]any{
		"path": f.Path.String(), "rel_path": f.RelPath, "size": f.Size,
		"mtime": f.Mtime.UTC(), "content": string(f.Content),
	})
}

func (r *Registry) handleListFiles(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	prefix := args.GetString("prefix", "")

	files, err := r.store.ListFiles(r.root.RootID, prefix)
	if err != nil {
		return errorResponse("list_files", err)
	}

	out := make([]map[string]any, 0, len(files))
	for _, f := range files {
		out = append(out, map[string]any{
			"path": f.Path.String(), "rel_path": f.RelPath, "size": f.Size,
			"mtime": f.Mtime.UTC(), "parse_status": f.ParseStatus,
		})
	}
	return jsonResponse(map[string]any{"files": out})
}

func (r *Registry) handleListSymbols(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	rel := args.GetString("path", "")
	if rel == "" {
		return errorResponse("list_symbols", deckerrors.New(deckerrors.CodeInvalidArgs, "path is required"))
	}

	symbols, err := r.store.ListSymbolsForPath(ctx, types.NewFileID(r.root.RootID, rel))
	if err != nil {
		return errorResponse("list_symbols", err)
	}
	return jsonResponse(map[string]any{"symbols": symbols})
}

// handleDryRunDiff reports how a hypothetical replacement of path's
// content would change the symbol set the parser pool would extract,
// without writing anything to storage. It reuses the indexer's own parse
// step so the preview reflects the real parser pool, not a guess.
func (r *Registry) handleDryRunDiff(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	rel := args.GetString("path", "")
	content := args.GetString("content", "")
	if rel == "" || content == "" {
		return errorResponse("dry_run_diff", deckerrors.New(deckerrors.CodeInvalidArgs, "path and content are required"))
	}

	path := types.NewFileID(r.root.RootID, rel)
	before, err := r.store.ReadFile(path)
	existed := err == nil

	symbols, parseErr := r.idx.ParsePreview(path, r.root.RootID, rel, []byte(content))
	resp := map[string]any{
		"path": path.String(), "existed": existed, "proposed_symbol_count": len(symbols),
	}
	if existed {
		resp["previous_size"] = before.Size
	}
	if parseErr != nil {
		resp["parse_error"] = parseErr.Error()
	} else {
		resp["symbols"] = symbols
	}
	return jsonResponse(resp)
}
