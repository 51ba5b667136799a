package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

func (r *Registry) handleSaveSnippet(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	content := args.GetString("content", "")
	if content == "" {
		return errorResponse("save_snippet", deckerrors.New(deckerrors.CodeInvalidArgs, "content is required"))
	}

	s := types.Snippet{
		ID:      args.GetString("id", ""),
		Label:   args.GetString("label", ""),
		Content: content,
		Tags:    args.GetStringSlice("tags"),
	}
	if rel := args.GetString("path", ""); rel != "" {
		s.Path = types.NewFileID(r.root.RootID, rel)
	}

	saved, err := r.store.SaveSnippet(ctx, s)
	if err != nil {
		return errorResponse("save_snippet", err)
	}
	return jsonResponse(saved)
}

func (r *Registry) handleGetSnippet(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	id := args.GetString("id", "")
	if id == "" {
		return errorResponse("get_snippet", deckerrors.New(deckerrors.CodeInvalidArgs, "id is required"))
	}

	s, err := r.store.GetSnippet(ctx, id)
	if err != nil {
		return errorResponse("get_snippet", err)
	}
	return jsonResponse(s)
}

func (r *Registry) handleArchiveContext(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	scopePath := args.GetString("scope_path", "")
	note := args.GetString("note", "")
	if scopePath == "" || note == "" {
		return errorResponse("archive_context", deckerrors.New(deckerrors.CodeInvalidArgs, "scope_path and note are required"))
	}

	c := types.Context{
		Scope:     args.GetString("scope", "file"),
		ScopePath: scopePath,
		Note:      note,
		Tags:      args.GetStringSlice("tags"),
	}
	saved, err := r.store.SaveContext(ctx, c)
	if err != nil {
		return errorResponse("archive_context", err)
	}
	return jsonResponse(saved)
}

func (r *Registry) handleGetContext(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	scopePath := args.GetString("scope_path", "")
	if scopePath == "" {
		return errorResponse("get_context", deckerrors.New(deckerrors.CodeInvalidArgs, "scope_path is required"))
	}

	notes, err := r.store.GetContext(ctx, scopePath)
	if err != nil {
		return errorResponse("get_context", err)
	}
	return jsonResponse(map[string]any{"notes": notes})
}
