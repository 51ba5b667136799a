package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

func testStore(t *testing.T) (*storage.Kernel, fts.Engine) {
	t.Helper()
	dir := t.TempDir()
	k, err := storage.Open(config.Storage{
		DBPath:        filepath.Join(dir, "index.db"),
		MaxBatch:      8,
		MaxWaitMs:     10,
		ReadPoolMax:   4,
		OverlayLimit:  16,
		BusyTimeoutMs: 2000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k, fts.New("sqlite", k.GetReadConnection())
}

func seedFile(t *testing.T, k *storage.Kernel, tok *fts.Tokenizer, root types.RootID, rel, content string, mtime time.Time) types.FileID {
	t.Helper()
	path := types.NewFileID(root, rel)
	f := types.File{
		Path: path, RootID: root, RelPath: rel, Mtime: mtime, Size: int64(len(content)),
		Content: []byte(content), FTSContent: tok.Normalize(content),
		LastSeenTS: time.Now().UTC(), ParseStatus: types.ParseStatusOK, ASTStatus: types.ParseStatusOK,
	}
	require.NoError(t, k.UpsertFiles([]types.File{f}))
	return path
}

func TestSearchFindsContentMatch(t *testing.T) {
	k, engine := testStore(t)
	tok := fts.NewTokenizer("")
	root := types.NewRootID("/work/proj")
	seedFile(t, k, tok, root, "main.go", "package main\n\nfunc handleRequest() {}\n", time.Now().UTC())

	resp, err := Search(context.Background(), k, engine, Options{Query: "handleRequest"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
}

func TestSearchSymbolOutranksContent(t *testing.T) {
	k, engine := testStore(t)
	tok := fts.NewTokenizer("")
	root := types.NewRootID("/work/proj")

	path := seedFile(t, k, tok, root, "svc.go", "package svc\n\nfunc Widget() {}\n", time.Now().UTC())
	require.NoError(t, k.UpsertSymbols(path, []types.Symbol{
		{SymbolID: types.NewSymbolID(path.String(), "function", "Widget"), Path: path, RootID: root,
			Name: "Widget", QualName: "Widget", Kind: types.SymbolKindFunction, Line: 3, EndLine: 3},
	}))
	seedFile(t, k, tok, root, "comment.go", "package svc\n\n// Widget is mentioned here only in prose\n", time.Now().UTC())

	resp, err := Search(context.Background(), k, engine, Options{Query: "Widget"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	require.Equal(t, "svc.go", relPathOf(resp.Results[0].Path))
}

func TestSearchFileTypeFilter(t *testing.T) {
	k, engine := testStore(t)
	tok := fts.NewTokenizer("")
	root := types.NewRootID("/work/proj")
	seedFile(t, k, tok, root, "a.go", "package main\n\nfunc needle() {}\n", time.Now().UTC())
	seedFile(t, k, tok, root, "a.py", "def needle(): pass\n", time.Now().UTC())

	resp, err := Search(context.Background(), k, engine, Options{Query: "needle", FileTypes: []string{"py"}})
	require.NoError(t, err)
	for _, r := range resp.Results {
		require.Equal(t, ".py", filepath.Ext(relPathOf(r.Path)))
	}
}

func TestSearchRootScopeClipsOutOfScope(t *testing.T) {
	k, engine := testStore(t)
	opts := Options{
		Query:          "anything",
		RootIDs:        []string{"root-allowed", "root-forbidden"},
		AllowedRootIDs: []string{"root-allowed"},
		ClipOutOfScope: true,
	}
	clipped, err := enforceRootScope(opts)
	require.NoError(t, err)
	require.Equal(t, []string{"root-allowed"}, clipped.RootIDs)

	opts.ClipOutOfScope = false
	_, err = Search(context.Background(), k, engine, opts)
	require.Error(t, err)
}

func TestSearchRegexPath(t *testing.T) {
	k, engine := testStore(t)
	tok := fts.NewTokenizer("")
	root := types.NewRootID("/work/proj")
	seedFile(t, k, tok, root, "re.go", "package main\n\nfunc doThing(x int) int { return x + 1 }\n", time.Now().UTC())

	resp, err := Search(context.Background(), k, engine, Options{Query: `func \w+\(`, UseRegex: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
}

func TestSearchInvalidRegexErrors(t *testing.T) {
	k, engine := testStore(t)
	_, err := Search(context.Background(), k, engine, Options{Query: `(unclosed`, UseRegex: true})
	require.Error(t, err)
}

func TestSearchPagination(t *testing.T) {
	k, engine := testStore(t)
	tok := fts.NewTokenizer("")
	root := types.NewRootID("/work/proj")
	for i := 0; i < 5; i++ {
		rel := filepath.Join("pkg", string(rune('a'+i))+".go")
		seedFile(t, k, tok, root, rel, "package pkg\n\nfunc marker() {}\n", time.Now().UTC())
	}

	first, err := Search(context.Background(), k, engine, Options{Query: "marker", Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, first.Results, 2)

	second, err := Search(context.Background(), k, engine, Options{Query: "marker", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, second.Results, 2)
	require.NotEqual(t, first.Results[0].Path, second.Results[0].Path)
}

func TestSearchApproxTotalIsNegativeOne(t *testing.T) {
	k, engine := testStore(t)
	tok := fts.NewTokenizer("")
	root := types.NewRootID("/work/proj")
	seedFile(t, k, tok, root, "x.go", "package main\n\nfunc approxTarget() {}\n", time.Now().UTC())

	resp, err := Search(context.Background(), k, engine, Options{Query: "approxTarget", TotalMode: TotalApprox})
	require.NoError(t, err)
	require.Equal(t, -1, resp.Total)
}
