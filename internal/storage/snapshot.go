package storage

import (
	"database/sql"
	"fmt"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// MergeSnapshot bulk-loads another deckard database (e.g. one built offline
// by a batch indexing job) into this kernel's database atomically, using
// ATTACH so the whole merge runs inside a single transaction and a failure
// leaves the live database untouched. Grounded on mind-palace's snapshot
// import path, which uses the same ATTACH-then-INSERT-SELECT-then-DETACH
// shape for its journal merges.
func (k *Kernel) MergeSnapshot(snapshotPath string) error {
	return k.writer.enqueue(nil, func(tx *sql.Tx) error {
		if _, err := tx.Exec(fmt.Sprintf(`ATTACH DATABASE %s AS snap`, quoteSQLiteString(snapshotPath))); err != nil {
			return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "attach snapshot")
		}
		defer tx.Exec(`DETACH DATABASE snap`)

		stmts := []string{
			`INSERT INTO roots SELECT * FROM snap.roots
				WHERE root_id NOT IN (SELECT root_id FROM roots)`,
			`INSERT INTO files SELECT * FROM snap.files
				WHERE true
				ON CONFLICT(path) DO UPDATE SET
					mtime = excluded.mtime, size = excluded.size,
					content_hash = excluded.content_hash, content = excluded.content,
					fts_content = excluded.fts_content, last_seen_ts = excluded.last_seen_ts,
					deleted_ts = excluded.deleted_ts, parse_status = excluded.parse_status,
					ast_status = excluded.ast_status, reason_code = excluded.reason_code,
					is_binary = excluded.is_binary, is_minified = excluded.is_minified,
					sampled = excluded.sampled
				WHERE excluded.mtime >= files.mtime`,
			`DELETE FROM symbols WHERE path IN (SELECT path FROM snap.files)`,
			`INSERT INTO symbols SELECT * FROM snap.symbols`,
			`DELETE FROM symbol_relations WHERE from_path IN (SELECT path FROM snap.files)`,
			`INSERT INTO symbol_relations SELECT * FROM snap.symbol_relations`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "merge snapshot statement")
			}
		}
		return nil
	})
}

// quoteSQLiteString escapes a file path for embedding in an ATTACH DATABASE
// literal, doubling single quotes per SQLite string-literal rules.
func quoteSQLiteString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	out = append(out, '\'')
	return string(out)
}
