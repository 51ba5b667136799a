package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/types"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Storage{
		DBPath:        filepath.Join(dir, "index.db"),
		MaxBatch:      8,
		MaxWaitMs:     10,
		ReadPoolMax:   4,
		OverlayLimit:  16,
		BusyTimeoutMs: 2000,
	}
	k, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k
}

func TestUpsertAndReadFile(t *testing.T) {
	k := testKernel(t)

	root := types.NewRootID("/work/proj")
	path := types.NewFileID(root, "main.go")

	f := types.File{
		Path:       path,
		RootID:     root,
		RelPath:    "main.go",
		Mtime:      time.Unix(1000, 0).UTC(),
		Size:       13,
		Content:    []byte("package main\n"),
		FTSContent: "package main",
		LastSeenTS: time.Now().UTC(),
	}
	require.NoError(t, k.UpsertFiles([]types.File{f}))

	got, err := k.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(got.Content))
}

func TestMtimeGuardRejectsStaleWrite(t *testing.T) {
	k := testKernel(t)

	root := types.NewRootID("/work/proj")
	path := types.NewFileID(root, "a.go")

	fresh := types.File{
		Path: path, RootID: root, RelPath: "a.go",
		Mtime: time.Unix(2000, 0).UTC(), Content: []byte("v2"),
		LastSeenTS: time.Now().UTC(),
	}
	require.NoError(t, k.UpsertFiles([]types.File{fresh}))

	stale := types.File{
		Path: path, RootID: root, RelPath: "a.go",
		Mtime: time.Unix(1000, 0).UTC(), Content: []byte("v1-stale"),
		LastSeenTS: time.Now().UTC(),
	}
	require.NoError(t, k.UpsertFiles([]types.File{stale}))

	got, err := k.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v2", string(got.Content))
}

func TestReadFileNotIndexed(t *testing.T) {
	k := testKernel(t)
	_, err := k.ReadFile(types.FileID("root-x/nope.go"))
	require.Error(t, err)
}

func TestDeletePathTombstones(t *testing.T) {
	k := testKernel(t)
	root := types.NewRootID("/work/proj")
	path := types.NewFileID(root, "b.go")

	f := types.File{
		Path: path, RootID: root, RelPath: "b.go",
		Mtime: time.Now().UTC(), Content: []byte("x"), LastSeenTS: time.Now().UTC(),
	}
	require.NoError(t, k.UpsertFiles([]types.File{f}))
	require.NoError(t, k.DeletePath(path))

	files, err := k.ListFiles(root, "")
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestUpsertSymbolsReplacesPriorSet(t *testing.T) {
	k := testKernel(t)
	root := types.NewRootID("/work/proj")
	path := types.NewFileID(root, "c.go")

	f := types.File{Path: path, RootID: root, RelPath: "c.go", Mtime: time.Now().UTC(), LastSeenTS: time.Now().UTC()}
	require.NoError(t, k.UpsertFiles([]types.File{f}))

	first := []types.Symbol{{
		SymbolID: types.NewSymbolID(path.String(), "function", "Foo"),
		Path:     path, RootID: root, Name: "Foo", QualName: "Foo",
		Kind: types.SymbolKindFunction, Line: 1, EndLine: 3,
	}}
	require.NoError(t, k.UpsertSymbols(path, first))

	second := []types.Symbol{{
		SymbolID: types.NewSymbolID(path.String(), "function", "Bar"),
		Path:     path, RootID: root, Name: "Bar", QualName: "Bar",
		Kind: types.SymbolKindFunction, Line: 5, EndLine: 7,
	}}
	require.NoError(t, k.UpsertSymbols(path, second))

	var count int
	row := k.GetReadConnection().QueryRow(`SELECT COUNT(*) FROM symbols WHERE path = ?`, path.String())
	require.NoError(t, row.Scan(&count))
	require.Equal(t, 1, count)
}

func TestConcurrentSymbolWritesTotalCountIsExact(t *testing.T) {
	k := testKernel(t)
	root := types.NewRootID("/work/proj")

	const workers = 4
	const perWorker = 50

	paths := make([]types.FileID, workers)
	files := make([]types.File, workers)
	for w := 0; w < workers; w++ {
		paths[w] = types.NewFileID(root, fmt.Sprintf("w%d.go", w))
		files[w] = types.File{
			Path: paths[w], RootID: root, RelPath: fmt.Sprintf("w%d.go", w),
			Mtime: time.Now().UTC(), LastSeenTS: time.Now().UTC(),
		}
	}
	require.NoError(t, k.UpsertFiles(files))

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			symbols := make([]types.Symbol, perWorker)
			for i := 0; i < perWorker; i++ {
				qualname := fmt.Sprintf("W%d_Fn%d", w, i)
				symbols[i] = types.Symbol{
					SymbolID: types.NewSymbolID(paths[w].String(), "function", qualname),
					Path:     paths[w], RootID: root, Name: qualname, QualName: qualname,
					Kind: types.SymbolKindFunction, Line: i + 1, EndLine: i + 2,
				}
			}
			errs[w] = k.UpsertSymbols(paths[w], symbols)
		}(w)
	}
	wg.Wait()

	for w, err := range errs {
		require.NoError(t, err, "worker %d", w)
		if err != nil {
			require.NotContains(t, err.Error(), "database is locked")
		}
	}

	var count int
	row := k.GetReadConnection().QueryRow(`SELECT COUNT(*) FROM symbols WHERE root_id = ?`, string(root))
	require.NoError(t, row.Scan(&count))
	require.Equal(t, workers*perWorker, count)
}

func TestWriterThreadViolationPanicsOutsideWriterGoroutine(t *testing.T) {
	k := testKernel(t)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(interface{ Error() string })
		require.True(t, ok)
	}()
	k.writer.requireWriter("test-direct-call")
}
