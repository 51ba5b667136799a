package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/deckard/internal/callgraph"
	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

func (r *Registry) handleGetCallers(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	sid := args.GetString("symbol_id", "")
	if sid == "" {
		return errorResponse("get_callers", deckerrors.New(deckerrors.CodeInvalidArgs, "symbol_id is required"))
	}
	limit := args.GetInt("limit", 0)

	edges, err := r.store.CallersOf(ctx, types.SymbolID(sid), limit)
	if err != nil {
		return errorResponse("get_callers", err)
	}
	return jsonResponse(map[string]any{"callers": edges})
}

func (r *Registry) handleGetImplementations(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	sid := args.GetString("symbol_id", "")
	if sid == "" {
		return errorResponse("get_implementations", deckerrors.New(deckerrors.CodeInvalidArgs, "symbol_id is required"))
	}
	limit := args.GetInt("limit", 0)

	edges, err := r.store.FindImplementations(ctx, types.SymbolID(sid), limit)
	if err != nil {
		return errorResponse("get_implementations", err)
	}
	return jsonResponse(map[string]any{"implementations": edges})
}

func (r *Registry) handleCallGraph(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	opts := callgraph.Options{
		Symbol:       args.GetString("symbol", ""),
		SymbolID:     args.GetString("symbol_id", ""),
		Path:         args.GetString("path", ""),
		Depth:        args.GetInt("depth", 0),
		ExcludePaths: args.GetStringSlice("exclude_paths"),
		IncludePaths: args.GetStringSlice("include_paths"),
		RootIDs:      []string{r.root.RootID.String()},
		PluginDir:    r.cfg.CallGraph.PluginDir,
	}

	resp, err := callgraph.CallGraph(ctx, r.store, opts)
	if err != nil {
		return errorResponse("call_graph", err)
	}
	return jsonResponse(resp)
}
