package callgraph

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

func testStore(t *testing.T) *storage.Kernel {
	t.Helper()
	dir := t.TempDir()
	k, err := storage.Open(config.Storage{
		DBPath: filepath.Join(dir, "index.db"), MaxBatch: 8, MaxWaitMs: 10,
		ReadPoolMax: 4, OverlayLimit: 16, BusyTimeoutMs: 2000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k
}

func seedSymbol(t *testing.T, k *storage.Kernel, root types.RootID, rel, name string, line int) (types.FileID, types.SymbolID) {
	t.Helper()
	path := types.NewFileID(root, rel)
	sid := types.NewSymbolID(path.String(), "function", name)
	require.NoError(t, k.UpsertFiles([]types.File{{
		Path: path, RootID: root, RelPath: rel, Mtime: time.Now().UTC(),
		LastSeenTS: time.Now().UTC(), ParseStatus: types.ParseStatusOK, ASTStatus: types.ParseStatusOK,
	}}))
	require.NoError(t, k.UpsertSymbols(path, []types.Symbol{
		{SymbolID: sid, Path: path, RootID: root, Name: name, QualName: name, Kind: types.SymbolKindFunction, Line: line, EndLine: line + 1},
	}))
	return path, sid
}

func addCall(t *testing.T, k *storage.Kernel, fromPath types.FileID, fromSym string, fromSID types.SymbolID, toPath types.FileID, toSym string, toSID types.SymbolID) {
	t.Helper()
	require.NoError(t, k.UpsertRelations(fromPath, []types.SymbolRelation{
		{FromPath: fromPath, FromSymbol: fromSym, FromSymbolID: fromSID,
			ToPath: toPath, ToSymbol: toSym, ToSymbolID: toSID, RelType: types.RelCalls, Line: 1},
	}))
}

func TestCallGraphResolvesBySymbolID(t *testing.T) {
	k := testStore(t)
	root := types.NewRootID("/work/proj")
	path, sid := seedSymbol(t, k, root, "main.go", "main", 1)

	resp, err := CallGraph(context.Background(), k, Options{SymbolID: sid.String()})
	require.NoError(t, err)
	require.Equal(t, "main", resp.Symbol)
	require.Equal(t, path.String(), resp.Path)
}

func TestCallGraphAmbiguousNameReturnsCandidates(t *testing.T) {
	k := testStore(t)
	root := types.NewRootID("/work/proj")
	seedSymbol(t, k, root, "a.go", "Run", 1)
	seedSymbol(t, k, root, "b.go", "Run", 1)

	resp, err := CallGraph(context.Background(), k, Options{Symbol: "Run"})
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 2)
	require.Nil(t, resp.Upstream)
}

func TestCallGraphEntropySuppressionOnHighFanIn(t *testing.T) {
	k := testStore(t)
	root := types.NewRootID("/work/proj")

	logPath, logSID := seedSymbol(t, k, root, "log.go", "log", 1)
	mainPath, mainSID := seedSymbol(t, k, root, "main.go", "main", 1)
	addCall(t, k, mainPath, "main", mainSID, logPath, "log", logSID)

	for i := 0; i < 60; i++ {
		callerPath, callerSID := seedSymbol(t, k, root, fmt.Sprintf("caller%d.go", i), fmt.Sprintf("caller%d", i), 1)
		addCall(t, k, callerPath, fmt.Sprintf("caller%d", i), callerSID, logPath, "log", logSID)
	}

	resp, err := CallGraph(context.Background(), k, Options{Symbol: "main", Depth: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.Downstream)
	require.Len(t, resp.Downstream.Children, 1)
	require.Equal(t, "log", resp.Downstream.Children[0].Name)
	require.LessOrEqual(t, resp.Downstream.Children[0].Confidence, 0.2)
}

func TestCallGraphRespectsMaxNodesBudget(t *testing.T) {
	k := testStore(t)
	root := types.NewRootID("/work/proj")

	hubPath, hubSID := seedSymbol(t, k, root, "hub.go", "hub", 1)
	for i := 0; i < 20; i++ {
		calleePath, calleeSID := seedSymbol(t, k, root, fmt.Sprintf("callee%d.go", i), fmt.Sprintf("callee%d", i), 1)
		addCall(t, k, hubPath, "hub", hubSID, calleePath, fmt.Sprintf("callee%d", i), calleeSID)
	}

	resp, err := CallGraph(context.Background(), k, Options{Symbol: "hub", Depth: 1, MaxNodes: 5})
	require.NoError(t, err)
	require.True(t, resp.Truncated)
	require.Equal(t, "max_nodes", resp.TruncateReason)
}

func TestCallGraphExcludePathFiltersNode(t *testing.T) {
	k := testStore(t)
	root := types.NewRootID("/work/proj")

	callerPath, callerSID := seedSymbol(t, k, root, "caller.go", "caller", 1)
	vendoredPath, vendoredSID := seedSymbol(t, k, root, "vendor/lib.go", "vendoredFn", 1)
	addCall(t, k, callerPath, "caller", callerSID, vendoredPath, "vendoredFn", vendoredSID)

	resp, err := CallGraph(context.Background(), k, Options{Symbol: "caller", Depth: 1, ExcludePaths: []string{"vendor/**"}})
	require.NoError(t, err)
	require.Empty(t, resp.Downstream.Children)
}
