package storage

import (
	"database/sql"
	"time"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

// UpsertFailedTask records (or bumps the attempt count of) a dead-letter
// entry for a recoverable pipeline failure, e.g. a parser worker that
// could not extract symbols from a file. This does not kill the worker;
// it only leaves a retryable trail the indexer's reconciliation pass
// drains on its own exponential-backoff schedule.
func (k *Kernel) UpsertFailedTask(ft types.FailedTask) error {
	return k.writer.enqueue(nil, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO failed_tasks(id, task_kind, target_path, attempts, last_err_code, last_err_msg, next_retry_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				attempts      = failed_tasks.attempts + 1,
				last_err_code = excluded.last_err_code,
				last_err_msg  = excluded.last_err_msg,
				next_retry_at = excluded.next_retry_at`,
			ft.ID, ft.TaskKind, ft.TargetPath, ft.Attempts, ft.LastErrCode, ft.LastErrMsg,
			ft.NextRetryAt.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// DeleteFailedTask removes a dead-letter entry, used once a retried task
// finally succeeds.
func (k *Kernel) DeleteFailedTask(id string) error {
	return k.writer.enqueue(nil, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM failed_tasks WHERE id = ?`, id)
		return err
	})
}

// ListDueFailedTasks returns every dead-letter entry whose next_retry_at
// has elapsed, ordered oldest-due-first.
func (k *Kernel) ListDueFailedTasks(now time.Time) ([]types.FailedTask, error) {
	rows, err := k.readDB.Query(`
		SELECT id, task_kind, target_path, attempts, last_err_code, last_err_msg, next_retry_at
		FROM failed_tasks
		WHERE next_retry_at <= ?
		ORDER BY next_retry_at ASC`, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "list due failed tasks")
	}
	defer rows.Close()

	var out []types.FailedTask
	for rows.Next() {
		var ft types.FailedTask
		var nextRetry string
		if err := rows.Scan(&ft.ID, &ft.TaskKind, &ft.TargetPath, &ft.Attempts,
			&ft.LastErrCode, &ft.LastErrMsg, &nextRetry); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan failed task row")
		}
		ft.NextRetryAt, _ = time.Parse(time.RFC3339Nano, nextRetry)
		out = append(out, ft)
	}
	return out, rows.Err()
}

// CountFailedTasks reports the current dead-letter backlog size, backing
// the tool registry's status/doctor handlers.
func (k *Kernel) CountFailedTasks() (int, error) {
	var n int
	err := k.readDB.QueryRow(`SELECT COUNT(*) FROM failed_tasks`).Scan(&n)
	if err != nil {
		return 0, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "count failed tasks")
	}
	return n, nil
}
