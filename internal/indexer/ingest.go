package indexer

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/deckard/internal/debuglog"
	"github.com/standardbeagle/deckard/internal/parserpool"
	"github.com/standardbeagle/deckard/internal/scanner"
	"github.com/standardbeagle/deckard/internal/types"
)

// pendingFile holds everything submitFile already knows about a changed
// path while its parser.Result is still in flight, so drainResults can
// assemble the final types.File without re-reading the file a second time.
type pendingFile struct {
	root     types.Root
	relPath  string
	mtime    time.Time
	size     int64
	content  []byte
	isBinary bool
	isMinified bool
	sampled  bool
}

// submitFile reads a changed/new file's content and hands it to the
// parser pool, stashing the bookkeeping drainResults needs once the
// corresponding Result arrives. It reports whether a Task actually
// reached the pool (and therefore whether the caller should count on a
// matching Result arriving on Results()); binary files and unreadable
// paths are resolved synchronously and report false.
func (ix *Indexer) submitFile(ctx context.Context, root types.Root, path types.FileID, rel string, entry types.ScanEntry) (bool, error) {
	content, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		// A file that disappeared mid-scan is not a scan failure; skip it,
		// the next scan (or a delete watcher event) will reconcile it.
		debuglog.Printf("indexer: read %s: %v", entry.AbsPath, err)
		return false, nil
	}

	isBinary := scanner.IsBinary(content, entry.Size)
	isMinified := !isBinary && scanner.IsMinified(content)
	sampled := false
	submitContent := content
	if !isBinary && len(content) > 2*scanner.SampleChunkBytes {
		submitContent = scanner.Sample(content)
		sampled = true
	}

	ix.pendingMu.Lock()
	ix.pending[path] = pendingFile{
		root: root, relPath: rel, mtime: entry.Mtime, size: entry.Size,
		content: content, isBinary: isBinary, isMinified: isMinified, sampled: sampled,
	}
	ix.pendingMu.Unlock()

	if isBinary {
		// Binary files are recorded but never handed to a language parser.
		return false, ix.finishUnparsed(path)
	}

	if err := ix.pool.Submit(ctx, parserpool.Task{
		Path: path, RootID: root.RootID, RelPath: rel, Content: submitContent,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// finishUnparsed writes a file row for content the pool will never see
// (binary files), bypassing the Results channel entirely.
func (ix *Indexer) finishUnparsed(path types.FileID) error {
	ix.pendingMu.Lock()
	pf, ok := ix.pending[path]
	delete(ix.pending, path)
	ix.pendingMu.Unlock()
	if !ok {
		return nil
	}
	return ix.writeFile(pf, path, nil, types.ParseStatusSkipped, "binary")
}

// drainResults consumes exactly n parserpool.Results (the count of Tasks
// actually submitted this pass) and writes each one through the storage
// kernel, recording a FailedTask for any that failed to parse.
func (ix *Indexer) drainResults(n int, stats *ScanStats) error {
	for i := 0; i < n; i++ {
		res, ok := <-ix.pool.Results()
		if !ok {
			return nil
		}

		ix.pendingMu.Lock()
		pf, found := ix.pending[res.Path]
		delete(ix.pending, res.Path)
		ix.pendingMu.Unlock()
		if !found {
			continue
		}

		if res.Err != nil {
			stats.Failed++
			if err := ix.recordFailure(res.Path, res.Err); err != nil {
				return err
			}
			// Still record the file's content (searchable) even though
			// symbol extraction failed, per spec.md §4.5: parser failure
			// never drops the file from the index, only its symbols.
			if err := ix.writeFile(pf, res.Path, nil, types.ParseStatusFailed, "parse_error"); err != nil {
				return err
			}
			continue
		}

		if err := ix.writeFile(pf, res.Path, res.Symbols, res.Status, res.ReasonCode); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) writeFile(pf pendingFile, path types.FileID, symbols []types.Symbol, status types.ParseStatus, reason string) error {
	f := types.File{
		Path:        path,
		RootID:      pf.root.RootID,
		RelPath:     pf.relPath,
		Mtime:       pf.mtime,
		Size:        pf.size,
		ContentHash: types.ContentHash(pf.content),
		Content:     pf.content,
		FTSContent:  ix.tok.Normalize(string(pf.content)),
		LastSeenTS:  time.Now().UTC(),
		ParseStatus: status,
		ASTStatus:   status,
		ReasonCode:  reason,
		IsBinary:    pf.isBinary,
		IsMinified:  pf.isMinified,
		Sampled:     pf.sampled,
	}
	if err := ix.store.UpsertFiles([]types.File{f}); err != nil {
		return err
	}
	if symbols != nil {
		if err := ix.store.UpsertSymbols(path, symbols); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) recordFailure(path types.FileID, cause error) error {
	ft := types.FailedTask{
		ID:          uuid.NewString(),
		TaskKind:    "parse",
		TargetPath:  path.String(),
		Attempts:    1,
		LastErrCode: "parse_error",
		LastErrMsg:  cause.Error(),
		NextRetryAt: time.Now().UTC().Add(parserpool.Backoff(1)),
	}
	return ix.store.UpsertFailedTask(ft)
}
