package storage

import (
	"compress/zlib"
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"time"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

// UpsertRoot records (or refreshes) a workspace root.
func (k *Kernel) UpsertRoot(r types.Root) error {
	return k.writer.enqueue(nil, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO roots(root_id, abs_path, label, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(root_id) DO UPDATE SET
				label = excluded.label,
				updated_at = excluded.updated_at`,
			r.RootID.String(), r.AbsPath, r.Label,
			r.CreatedAt.UTC().Format(time.RFC3339Nano),
			r.UpdatedAt.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// UpsertFiles writes a batch of file rows, honoring the mtime guard: a
// conflicting row is only overwritten when the incoming mtime is >= the
// stored one, so a stale re-scan can never clobber a fresher write that
// raced ahead of it (spec.md §8 invariant 1).
func (k *Kernel) UpsertFiles(files []types.File) error {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path.String()
	}
	return k.writer.enqueue(paths, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO files(
				path, root_id, rel_path, repo, mtime, size, content_hash,
				content, fts_content, last_seen_ts, deleted_ts,
				parse_status, ast_status, reason_code,
				is_binary, is_minified, sampled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				rel_path     = excluded.rel_path,
				repo         = excluded.repo,
				mtime        = excluded.mtime,
				size         = excluded.size,
				content_hash = excluded.content_hash,
				content      = excluded.content,
				fts_content  = excluded.fts_content,
				last_seen_ts = excluded.last_seen_ts,
				deleted_ts   = excluded.deleted_ts,
				parse_status = excluded.parse_status,
				ast_status   = excluded.ast_status,
				reason_code  = excluded.reason_code,
				is_binary    = excluded.is_binary,
				is_minified  = excluded.is_minified,
				sampled      = excluded.sampled
			WHERE excluded.mtime >= files.mtime`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range files {
			compressed, cErr := compress(f.Content)
			if cErr != nil {
				return cErr
			}
			var deletedTS int64
			if !f.DeletedTS.IsZero() {
				deletedTS = f.DeletedTS.Unix()
			}
			_, err := stmt.Exec(
				f.Path.String(), f.RootID.String(), f.RelPath, f.Repo,
				f.Mtime.Unix(), f.Size, f.ContentHash,
				compressed, f.FTSContent, f.LastSeenTS.Unix(), deletedTS,
				string(f.ParseStatus), string(f.ASTStatus), f.ReasonCode,
				boolInt(f.IsBinary), boolInt(f.IsMinified), boolInt(f.Sampled))
			if err != nil {
				return err
			}
			k.overlay.put(f)
		}
		return nil
	})
}

// UpsertSymbols replaces every symbol for the given path: deletes the
// path's prior rows, then inserts the new set, inside the same
// transaction, matching the teacher's "delete then reinsert" convention for
// symbol-table refresh.
func (k *Kernel) UpsertSymbols(path types.FileID, symbols []types.Symbol) error {
	return k.writer.enqueue([]string{path.String()}, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM symbols WHERE path = ?`, path.String()); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO symbols(
				symbol_id, path, root_id, name, qualname, kind, line, end_line,
				content, parent, metadata, docstring)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range symbols {
			meta, mErr := json.Marshal(s.Metadata)
			if mErr != nil {
				meta = []byte("{}")
			}
			if _, err := stmt.Exec(
				s.SymbolID.String(), path.String(), s.RootID.String(), s.Name, s.QualName,
				string(s.Kind), s.Line, s.EndLine, s.Content, s.Parent.String(),
				string(meta), s.Docstring); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertRelations replaces every outgoing relation recorded for fromPath.
func (k *Kernel) UpsertRelations(fromPath types.FileID, rels []types.SymbolRelation) error {
	return k.writer.enqueue([]string{fromPath.String()}, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM symbol_relations WHERE from_path = ?`, fromPath.String()); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO symbol_relations(
				from_path, from_symbol, from_symbol_id,
				to_path, to_symbol, to_symbol_id, rel_type, line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rels {
			if _, err := stmt.Exec(
				fromPath.String(), r.FromSymbol, r.FromSymbolID.String(),
				r.ToPath.String(), r.ToSymbol, r.ToSymbolID.String(),
				string(r.RelType), r.Line); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePath tombstones a file and drops its symbols/relations.
func (k *Kernel) DeletePath(path types.FileID) error {
	return k.writer.enqueue([]string{path.String()}, func(tx *sql.Tx) error {
		now := time.Now().UTC().Unix()
		if _, err := tx.Exec(`UPDATE files SET deleted_ts = ? WHERE path = ?`, now, path.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM symbols WHERE path = ?`, path.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM symbol_relations WHERE from_path = ?`, path.String()); err != nil {
			return err
		}
		return nil
	})
}

// DeleteUnseenFiles tombstones every non-deleted file under rootID whose
// last_seen_ts predates scanStartTs, implementing spec.md §4.6's
// delete_unseen_files(scan_start_ts) reconciliation sweep run at the end
// of a full scan_once pass.
func (k *Kernel) DeleteUnseenFiles(rootID types.RootID, scanStartTs time.Time) ([]types.FileID, error) {
	rows, err := k.readDB.Query(`
		SELECT path FROM files
		WHERE root_id = ? AND deleted_ts = 0 AND last_seen_ts < ?`,
		rootID.String(), scanStartTs.UTC().Unix())
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "list unseen files")
	}
	var stale []types.FileID
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan unseen file row")
		}
		stale = append(stale, types.FileID(path))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "iterate unseen files")
	}

	for _, path := range stale {
		if err := k.DeletePath(path); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

// UpdateLastSeen bumps last_seen_ts for every path still present in a scan,
// without touching content, used to distinguish "still here" from
// "never reconciled" during full reconciliation passes.
func (k *Kernel) UpdateLastSeen(paths []types.FileID, seenAt time.Time) error {
	strs := make([]string, len(paths))
	for i, p := range paths {
		strs[i] = p.String()
	}
	return k.writer.enqueue(strs, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE files SET last_seen_ts = ? WHERE path = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		ts := seenAt.UTC().Unix()
		for _, p := range strs {
			if _, err := stmt.Exec(ts, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListFiles returns every non-deleted file under rootID, optionally
// filtered by a rel-path prefix.
func (k *Kernel) ListFiles(rootID types.RootID, relPrefix string) ([]types.File, error) {
	rows, err := k.readDB.Query(`
		SELECT path, root_id, rel_path, repo, mtime, size, content_hash,
			fts_content, last_seen_ts, deleted_ts, parse_status, ast_status,
			reason_code, is_binary, is_minified, sampled
		FROM files
		WHERE root_id = ? AND deleted_ts = 0 AND rel_path LIKE ?
		ORDER BY rel_path ASC`, rootID.String(), relPrefix+"%")
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "list_files query")
	}
	defer rows.Close()

	var out []types.File
	for rows.Next() {
		var f types.File
		var path, root, parseStatus, astStatus string
		var mtimeUnix, lastSeenUnix, deletedUnix int64
		var isBinary, isMinified, sampled int
		if err := rows.Scan(&path, &root, &f.RelPath, &f.Repo, &mtimeUnix, &f.Size,
			&f.ContentHash, &f.FTSContent, &lastSeenUnix, &deletedUnix,
			&parseStatus, &astStatus, &f.ReasonCode, &isBinary, &isMinified, &sampled); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan file row")
		}
		f.Path = types.FileID(path)
		f.RootID = types.RootID(root)
		f.Mtime = time.Unix(mtimeUnix, 0).UTC()
		f.LastSeenTS = time.Unix(lastSeenUnix, 0).UTC()
		if deletedUnix > 0 {
			f.DeletedTS = time.Unix(deletedUnix, 0).UTC()
		}
		f.ParseStatus = types.ParseStatus(parseStatus)
		f.ASTStatus = types.ParseStatus(astStatus)
		f.IsBinary = isBinary != 0
		f.IsMinified = isMinified != 0
		f.Sampled = sampled != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// ReadFile returns one file's decompressed content, checking the overlay
// first so a just-written file is visible before its batch commits.
func (k *Kernel) ReadFile(path types.FileID) (types.File, error) {
	if f, ok := k.overlay.get(path.String()); ok {
		return f, nil
	}

	row := k.readDB.QueryRow(`
		SELECT path, root_id, rel_path, repo, mtime, size, content_hash,
			content, fts_content, last_seen_ts, deleted_ts,
			parse_status, ast_status, reason_code, is_binary, is_minified, sampled
		FROM files WHERE path = ?`, path.String())

	var f types.File
	var pathStr, root, parseStatus, astStatus string
	var compressed []byte
	var mtimeUnix, lastSeenUnix, deletedUnix int64
	var isBinary, isMinified, sampled int
	if err := row.Scan(&pathStr, &root, &f.RelPath, &f.Repo, &mtimeUnix, &f.Size,
		&f.ContentHash, &compressed, &f.FTSContent, &lastSeenUnix, &deletedUnix,
		&parseStatus, &astStatus, &f.ReasonCode, &isBinary, &isMinified, &sampled); err != nil {
		if err == sql.ErrNoRows {
			return types.File{}, deckerrors.New(deckerrors.CodeNotIndexed, "path not indexed: "+path.String())
		}
		return types.File{}, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "read_file query")
	}

	content, err := decompress(compressed)
	if err != nil {
		return types.File{}, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "decompress content")
	}

	f.Path = types.FileID(pathStr)
	f.RootID = types.RootID(root)
	f.Content = content
	f.Mtime = time.Unix(mtimeUnix, 0).UTC()
	f.LastSeenTS = time.Unix(lastSeenUnix, 0).UTC()
	if deletedUnix > 0 {
		f.DeletedTS = time.Unix(deletedUnix, 0).UTC()
	}
	f.ParseStatus = types.ParseStatus(parseStatus)
	f.ASTStatus = types.ParseStatus(astStatus)
	f.IsBinary = isBinary != 0
	f.IsMinified = isMinified != 0
	f.Sampled = sampled != 0
	return f, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return nil, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
