package fts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

// TestSQLiteEngineIndexesAndMatchesCJKTerm is spec.md §8's concrete CJK
// scenario: insert several documents, one of them carrying a Korean term,
// and confirm a query for that term finds only that document - i.e. the
// tokenizer's CJK-run preservation (TestNormalizePreservesCJKRuns) actually
// round-trips through files_fts, not just through the in-memory Normalize
// call.
func TestSQLiteEngineIndexesAndMatchesCJKTerm(t *testing.T) {
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

	root := types.NewRootID("/work/proj")
	tok := NewTokenizer("")

	docs := map[string]string{
		"alpha.txt":  "alpha bravo charlie",
		"delta.txt":  "delta echo foxtrot",
		"korean.txt": "형태소 분석 테스트 문서",
		"golf.txt":   "golf hotel india",
		"juliet.txt": "juliet kilo lima",
	}

	var files []types.File
	for rel, content := range docs {
		path := types.NewFileID(root, rel)
		files = append(files, types.File{
			Path: path, RootID: root, RelPath: rel,
			Mtime: time.Now().UTC(), Content: []byte(content),
			FTSContent: tok.Normalize(content), LastSeenTS: time.Now().UTC(),
		})
	}
	require.NoError(t, k.UpsertFiles(files))

	engine := New("sqlite", k.GetReadConnection())
	hits, err := engine.Search(context.Background(), "형태소", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, types.NewFileID(root, "korean.txt").String(), hits[0].Path)
}
