package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/parserpool"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

func testIndexer(t *testing.T) (*Indexer, *storage.Kernel) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Storage.DBPath = filepath.Join(dir, "index.db")

	store, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pool := parserpool.New(2)
	t.Cleanup(func() { pool.Close() })

	return New(cfg, store, pool), store
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestScanOnceIndexesNewGoFile(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "main.go", "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	stats, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Scanned)
	require.Equal(t, 1, stats.Changed)
	require.Equal(t, 0, stats.Failed)

	path := types.NewFileID(root.RootID, "main.go")
	got, err := store.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, types.ParseStatusOK, got.ParseStatus)
	require.Contains(t, string(got.Content), "func Hello")
}

func TestScanOnceSkipsUnchangedFile(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "a.go", "package main\n")

	ix, _ := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	_, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)

	stats, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Unchanged)
	require.Equal(t, 0, stats.Changed)
}

func TestScanOnceTombstonesDeletedFile(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "gone.go", "package main\n")

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	_, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(projectDir, "gone.go")))

	stats, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Deleted)

	path := types.NewFileID(root.RootID, "gone.go")
	_, err = store.ReadFile(path)
	require.Error(t, err)
}

func TestHandleEventIndexesModifiedFile(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "b.go", "package main\n")

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	abs := filepath.Join(projectDir, "b.go")
	err := ix.HandleEvent(context.Background(), root, types.FsEvent{Path: abs, Kind: types.FsEventModified})
	require.NoError(t, err)

	path := types.NewFileID(root.RootID, "b.go")
	got, err := store.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(got.Content))
}

func TestHandleEventDeletesTombstonesFile(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "c.go", "package main\n")

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	_, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)

	abs := filepath.Join(projectDir, "c.go")
	err = ix.HandleEvent(context.Background(), root, types.FsEvent{Path: abs, Kind: types.FsEventDeleted})
	require.NoError(t, err)

	path := types.NewFileID(root.RootID, "c.go")
	_, err = store.ReadFile(path)
	require.Error(t, err)
}

func TestReportLoadInvokesThrottle(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "d.go", "package main\n")

	ix, _ := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	var seen []float64
	ix.SetThrottle(func(ratio float64) { seen = append(seen, ratio) })

	_, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)
	require.NotEmpty(t, seen)
}

func TestScanOnceSkipsBinaryFile(t *testing.T) {
	projectDir := t.TempDir()
	abs := filepath.Join(projectDir, "blob.bin")
	require.NoError(t, os.WriteFile(abs, []byte{0x00, 0x01, 0x02, 0xff, 0x00, 0x00}, 0o644))

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	stats, err := ix.ScanOnce(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Changed)

	path := types.NewFileID(root.RootID, "blob.bin")
	got, err := store.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, types.ParseStatusSkipped, got.ParseStatus)
	require.True(t, got.IsBinary)
}

func TestScanOnceRespectsContextCancellation(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "e.go", "package main\n")

	ix, _ := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.ScanOnce(ctx, root)
	require.Error(t, err)
}

func TestRelPathNormalizesSeparators(t *testing.T) {
	require.Equal(t, "a/b.go", relPath("/work/proj", filepath.Join("/work/proj", "a", "b.go")))
}
