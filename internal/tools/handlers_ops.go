package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

func (r *Registry) handleStatus(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	rootIDs := []types.RootID{r.root.RootID}

	fileCount, err := r.store.CountFiles(ctx, rootIDs)
	if err != nil {
		return errorResponse("status", err)
	}
	symbolCount, err := r.store.CountSymbols(ctx, rootIDs)
	if err != nil {
		return errorResponse("status", err)
	}
	dlqCount, err := r.store.CountFailedTasks()
	if err != nil {
		return errorResponse("status", err)
	}

	return jsonResponse(map[string]any{
		"root":             r.root.AbsPath,
		"files_indexed":    fileCount,
		"symbols_indexed":  symbolCount,
		"writer_load_ratio": r.store.LoadRatio(),
		"dlq_pending":      dlqCount,
		"engine":           r.engine.Status(),
	})
}

// handleDoctor runs the same checks as status plus remediation hints, the
// way the teacher's diagnostics.go pairs a raw status dump with
// human-readable guidance.
func (r *Registry) handleDoctor(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	rootIDs := []types.RootID{r.root.RootID}

	fileCount, err := r.store.CountFiles(ctx, rootIDs)
	if err != nil {
		return errorResponse("doctor", err)
	}
	dlqCount, err := r.store.CountFailedTasks()
	if err != nil {
		return errorResponse("doctor", err)
	}
	engineStatus := r.engine.Status()

	var issues []string
	if fileCount == 0 {
		issues = append(issues, "no files indexed yet; run scan_once or wait for the initial scan to complete")
	}
	if !engineStatus.Ready {
		issues = append(issues, "FTS engine not ready: "+engineStatus.Reason)
	}
	if dlqCount > 0 {
		issues = append(issues, "dead-letter queue is non-empty; some files failed to parse")
	}

	return jsonResponse(map[string]any{
		"healthy":       len(issues) == 0,
		"issues":        issues,
		"files_indexed": fileCount,
		"dlq_pending":   dlqCount,
		"engine":        engineStatus,
	})
}

func (r *Registry) handleRescan(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	stats, err := r.idx.ScanOnce(ctx, r.root)
	if err != nil {
		return errorResponse("rescan", err)
	}
	return jsonResponse(stats)
}

func (r *Registry) handleIndexFile(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
	rel := args.GetString("path", "")
	if rel == "" {
		return errorResponse("index_file", deckerrors.New(deckerrors.CodeInvalidArgs, "path is required"))
	}

	ev := types.FsEvent{
		Kind: types.FsEventModified,
		Path: r.root.AbsPath + "/" + rel,
		Ts:   time.Now().UTC(),
		Root: r.root.RootID,
	}
	if err := r.idx.HandleEvent(ctx, r.root, ev); err != nil {
		return errorResponse("index_file", err)
	}
	return jsonResponse(map[string]any{"path": rel, "indexed": true})
}
