package indexer

import (
	"context"
	"os"
	"time"

	"github.com/standardbeagle/deckard/internal/debuglog"
	"github.com/standardbeagle/deckard/internal/parserpool"
	"github.com/standardbeagle/deckard/internal/types"
)

// DLQStats summarizes one RetryFailedTasks sweep.
type DLQStats struct {
	Retried    int
	Recovered  int
	StillFailed int
	ParkedHigh int // spec.md §4.6's dlq_failed_high: attempts exceeded max_attempts
}

// RetryFailedTasks drains every dead-letter entry whose backoff has
// elapsed, re-parses it, and either clears it (success) or reschedules it
// with the next exponential delay, parking it once max_attempts is
// exceeded (spec.md §4.6's dead-letter handling).
func (ix *Indexer) RetryFailedTasks(ctx context.Context, root types.Root) (*DLQStats, error) {
	due, err := ix.store.ListDueFailedTasks(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	stats := &DLQStats{}
	for _, ft := range due {
		if ft.TaskKind != "parse" {
			continue
		}

		path := types.FileID(ft.TargetPath)
		rel := relPathFromFileID(root.RootID, path)
		abs := root.AbsPath + string(os.PathSeparator) + rel

		info, statErr := os.Stat(abs)
		if statErr != nil {
			// The path is gone; drop the dead-letter entry, the
			// reconciliation sweep (or a delete event) already tombstoned
			// the file itself.
			if err := ix.store.DeleteFailedTask(ft.ID); err != nil {
				return stats, err
			}
			continue
		}
		stats.Retried++

		entry := types.ScanEntry{AbsPath: abs, Mtime: info.ModTime(), Size: info.Size()}
		ok, err := ix.submitFile(ctx, root, path, rel, entry)
		if err != nil {
			return stats, err
		}
		if !ok {
			continue
		}

		result := <-ix.pool.Results()
		ix.pendingMu.Lock()
		pf, found := ix.pending[result.Path]
		delete(ix.pending, result.Path)
		ix.pendingMu.Unlock()
		if !found {
			continue
		}

		if result.Err != nil {
			attempts := ft.Attempts + 1
			if attempts >= ix.cfg.Index.MaxAttempts {
				stats.ParkedHigh++
				debuglog.Printf("indexer: %s parked in failed_tasks after %d attempts", ft.TargetPath, attempts)
				continue
			}
			stats.StillFailed++
			retry := types.FailedTask{
				ID:          ft.ID,
				TaskKind:    "parse",
				TargetPath:  ft.TargetPath,
				Attempts:    attempts,
				LastErrCode: "parse_error",
				LastErrMsg:  result.Err.Error(),
				NextRetryAt: time.Now().UTC().Add(parserpool.Backoff(attempts)),
			}
			if err := ix.store.UpsertFailedTask(retry); err != nil {
				return stats, err
			}
			if err := ix.writeFile(pf, result.Path, nil, types.ParseStatusFailed, "parse_error"); err != nil {
				return stats, err
			}
			continue
		}

		stats.Recovered++
		if err := ix.writeFile(pf, result.Path, result.Symbols, result.Status, result.ReasonCode); err != nil {
			return stats, err
		}
		if err := ix.store.DeleteFailedTask(ft.ID); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func relPathFromFileID(root types.RootID, path types.FileID) string {
	prefix := root.String() + "/"
	s := path.String()
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}
