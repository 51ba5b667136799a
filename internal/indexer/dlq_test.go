package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/types"
)

func TestRetryFailedTasksRecoversOnNextAttempt(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectFile(t, projectDir, "f.go", "package main\n\nfunc F() {}\n")

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}
	path := types.NewFileID(root.RootID, "f.go")

	ft := types.FailedTask{
		ID:          uuid.NewString(),
		TaskKind:    "parse",
		TargetPath:  path.String(),
		Attempts:    1,
		LastErrCode: "parse_error",
		LastErrMsg:  "boom",
		NextRetryAt: time.Now().UTC().Add(-time.Second),
	}
	require.NoError(t, store.UpsertFailedTask(ft))

	stats, err := ix.RetryFailedTasks(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Retried)
	require.Equal(t, 1, stats.Recovered)

	due, err := store.ListDueFailedTasks(time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, due)

	got, err := store.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, types.ParseStatusOK, got.ParseStatus)
}

func TestRetryFailedTasksDropsEntryForVanishedFile(t *testing.T) {
	projectDir := t.TempDir()

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}
	path := types.NewFileID(root.RootID, "missing.go")

	ft := types.FailedTask{
		ID:          uuid.NewString(),
		TaskKind:    "parse",
		TargetPath:  path.String(),
		Attempts:    1,
		LastErrCode: "parse_error",
		LastErrMsg:  "boom",
		NextRetryAt: time.Now().UTC().Add(-time.Second),
	}
	require.NoError(t, store.UpsertFailedTask(ft))

	stats, err := ix.RetryFailedTasks(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Retried)

	due, err := store.ListDueFailedTasks(time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestRelPathFromFileIDStripsRootPrefix(t *testing.T) {
	root := types.NewRootID("/work/proj")
	path := types.NewFileID(root, "pkg/file.go")
	require.Equal(t, "pkg/file.go", relPathFromFileID(root, path))
}

func TestRetryFailedTasksIgnoresNonParseTasks(t *testing.T) {
	projectDir := t.TempDir()

	ix, store := testIndexer(t)
	root := types.Root{RootID: types.NewRootID(projectDir), AbsPath: projectDir}

	ft := types.FailedTask{
		ID:          uuid.NewString(),
		TaskKind:    "other",
		TargetPath:  "whatever",
		Attempts:    1,
		NextRetryAt: time.Now().UTC().Add(-time.Second),
	}
	require.NoError(t, store.UpsertFailedTask(ft))

	stats, err := ix.RetryFailedTasks(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Retried)
}
