package storage

import (
	"context"
	"strings"
	"time"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

// SymbolHit is one symbols.name LIKE match, the seed set for the hybrid
// search pipeline's symbol-query stage (spec.md §4.7).
type SymbolHit struct {
	SymbolID types.SymbolID
	Path     types.FileID
	RootID   types.RootID
	Name     string
	QualName string
	Kind     types.SymbolKind
	Line     int
}

// FileHit is one path/content LIKE match, used by the hybrid pipeline's
// fast (path-only) and slow (content-joined) LIKE fallback passes.
type FileHit struct {
	Path    types.FileID
	RootID  types.RootID
	RelPath string
	Repo    string
	Mtime   time.Time
	Content string // fts_content, uncompressed and normalized
}

// SearchSymbolsByName runs LIKE '%pattern%' over symbols.name, scoped to
// rootIDs (no scoping when rootIDs is empty), per spec.md §4.7's symbol
// query stage.
func (k *Kernel) SearchSymbolsByName(ctx context.Context, rootIDs []types.RootID, pattern string, limit int) ([]SymbolHit, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT s.symbol_id, s.path, s.root_id, s.name, s.qualname, s.kind, s.line
		FROM symbols s
		JOIN files f ON f.path = s.path
		WHERE f.deleted_ts = 0 AND s.name LIKE ?`
	args := []any{"%" + pattern + "%"}
	query, args = appendRootScope(query, args, "s.root_id", rootIDs)
	query += " ORDER BY s.name ASC LIMIT ?"
	args = append(args, limit)

	rows, err := k.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "search_symbols_by_name query")
	}
	defer rows.Close()

	var out []SymbolHit
	for rows.Next() {
		var h SymbolHit
		var symbolID, path, rootID, kind string
		if err := rows.Scan(&symbolID, &path, &rootID, &h.Name, &h.QualName, &kind, &h.Line); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan symbol hit")
		}
		h.SymbolID = types.SymbolID(symbolID)
		h.Path = types.FileID(path)
		h.RootID = types.RootID(rootID)
		h.Kind = types.SymbolKind(kind)
		out = append(out, h)
	}
	return out, rows.Err()
}

// SearchFilesByPathLike is the hybrid pipeline's fast LIKE path: it matches
// only the path/repo columns, never content, so it stays cheap even when
// FTS is ineligible for the query (spec.md §4.7).
func (k *Kernel) SearchFilesByPathLike(ctx context.Context, rootIDs []types.RootID, pattern string, limit int) ([]FileHit, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT path, root_id, rel_path, repo, mtime
		FROM files
		WHERE deleted_ts = 0 AND (path LIKE ? OR repo LIKE ?)`
	args := []any{"%" + pattern + "%", "%" + pattern + "%"}
	query, args = appendRootScope(query, args, "root_id", rootIDs)
	query += " ORDER BY mtime DESC LIMIT ?"
	args = append(args, limit)

	return k.scanFileHits(ctx, query, args)
}

// SearchFilesByContentLike is the hybrid pipeline's slow LIKE path,
// joining against fts_content for stores where FTS5 is unavailable or the
// query is FTS-ineligible (too short, non-ASCII), per spec.md §4.7.
func (k *Kernel) SearchFilesByContentLike(ctx context.Context, rootIDs []types.RootID, pattern string, limit int) ([]FileHit, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT path, root_id, rel_path, repo, mtime
		FROM files
		WHERE deleted_ts = 0 AND fts_content LIKE ?`
	args := []any{"%" + pattern + "%"}
	query, args = appendRootScope(query, args, "root_id", rootIDs)
	query += " ORDER BY mtime DESC LIMIT ?"
	args = append(args, limit)

	return k.scanFileHits(ctx, query, args)
}

// FileContentAndMtime returns one file's normalized content and mtime for
// the regex path and snippet synthesis, without paying for zlib inflate of
// the raw content blob.
func (k *Kernel) FileContentAndMtime(ctx context.Context, path types.FileID) (string, time.Time, error) {
	row := k.readDB.QueryRowContext(ctx, `SELECT fts_content, mtime FROM files WHERE path = ? AND deleted_ts = 0`, path.String())
	var content string
	var mtimeUnix int64
	if err := row.Scan(&content, &mtimeUnix); err != nil {
		return "", time.Time{}, deckerrors.Wrap(deckerrors.CodeNotIndexed, err, "file_content_and_mtime")
	}
	return content, time.Unix(mtimeUnix, 0).UTC(), nil
}

// SymbolsForPathAbove returns at most one symbol: the one in path whose
// start line is nearest at or above line, so the hybrid merge step can attach the
// enclosing symbol to an FTS/LIKE content hit (spec.md §4.7's "context
// symbol from the nearest symbol above the first matched line"). Ties on
// line are broken by end_line descending (SPEC_FULL.md §9), so an outer
// symbol whose body still encloses the matched line wins over a shorter
// sibling declared on the same line.
func (k *Kernel) SymbolsForPathAbove(ctx context.Context, path types.FileID, line int) ([]SymbolHit, error) {
	rows, err := k.readDB.QueryContext(ctx, `
		SELECT symbol_id, path, root_id, name, qualname, kind, line
		FROM symbols
		WHERE path = ? AND line <= ?
		ORDER BY line DESC, end_line DESC LIMIT 1`, path.String(), line)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "symbols_for_path_above query")
	}
	defer rows.Close()

	var out []SymbolHit
	for rows.Next() {
		var h SymbolHit
		var symbolID, p, rootID, kind string
		if err := rows.Scan(&symbolID, &p, &rootID, &h.Name, &h.QualName, &kind, &h.Line); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan context symbol")
		}
		h.SymbolID = types.SymbolID(symbolID)
		h.Path = types.FileID(p)
		h.RootID = types.RootID(rootID)
		h.Kind = types.SymbolKind(kind)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (k *Kernel) scanFileHits(ctx context.Context, query string, args []any) ([]FileHit, error) {
	rows, err := k.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "search_files query")
	}
	defer rows.Close()

	var out []FileHit
	for rows.Next() {
		var h FileHit
		var path, rootID string
		var mtimeUnix int64
		if err := rows.Scan(&path, &rootID, &h.RelPath, &h.Repo, &mtimeUnix); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan file hit")
		}
		h.Path = types.FileID(path)
		h.RootID = types.RootID(rootID)
		h.Mtime = time.Unix(mtimeUnix, 0).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

// appendRootScope adds a `root_id IN (...)` clause when rootIDs is
// non-empty, implementing spec.md §4.7's root_ids scope filter.
func appendRootScope(query string, args []any, column string, rootIDs []types.RootID) (string, []any) {
	if len(rootIDs) == 0 {
		return query, args
	}
	placeholders := make([]string, len(rootIDs))
	for i, r := range rootIDs {
		placeholders[i] = "?"
		args = append(args, r.String())
	}
	return query + " AND " + column + " IN (" + strings.Join(placeholders, ",") + ")", args
}

// ListCandidateFiles returns every non-deleted file scoped to rootIDs (all
// roots when empty), most-recent first, capped at limit. This backs the
// regex search path's "scans file contents via a capped LIMIT" rule
// (spec.md §4.7): rather than reading every file in the store, the regex
// scan only considers the limit most-recently-touched candidates.
func (k *Kernel) ListCandidateFiles(ctx context.Context, rootIDs []types.RootID, limit int) ([]FileHit, error) {
	if limit <= 0 {
		limit = 2000
	}
	query := `SELECT path, root_id, rel_path, repo, mtime FROM files WHERE deleted_ts = 0`
	var args []any
	query, args = appendRootScope(query, args, "root_id", rootIDs)
	query += " ORDER BY mtime DESC LIMIT ?"
	args = append(args, limit)

	return k.scanFileHits(ctx, query, args)
}

// CountFilesByContentLike returns COUNT(*) over SearchFilesByContentLike's
// WHERE clause without the LIMIT. search.Search does not call it: its
// total_mode=exact total is the length of the merged result list.
func (k *Kernel) CountFilesByContentLike(ctx context.Context, rootIDs []types.RootID, pattern string) (int, error) {
	query := `SELECT COUNT(*) FROM files WHERE deleted_ts = 0 AND fts_content LIKE ?`
	args := []any{"%" + pattern + "%"}
	query, args = appendRootScope(query, args, "root_id", rootIDs)

	var count int
	if err := k.readDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "count_files_by_content query")
	}
	return count, nil
}

// CountFiles reports the number of live (non-tombstoned) files under
// rootIDs, backing the tool registry's status/doctor handlers.
func (k *Kernel) CountFiles(ctx context.Context, rootIDs []types.RootID) (int, error) {
	query := `SELECT COUNT(*) FROM files WHERE deleted_ts = 0`
	var args []any
	query, args = appendRootScope(query, args, "root_id", rootIDs)

	var count int
	if err := k.readDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "count_files query")
	}
	return count, nil
}

// CountSymbols reports the number of indexed symbols under rootIDs,
// backing the tool registry's status/doctor handlers.
func (k *Kernel) CountSymbols(ctx context.Context, rootIDs []types.RootID) (int, error) {
	query := `SELECT COUNT(*) FROM symbols s JOIN files f ON f.path = s.path WHERE f.deleted_ts = 0`
	var args []any
	query, args = appendRootScope(query, args, "f.root_id", rootIDs)

	var count int
	if err := k.readDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "count_symbols query")
	}
	return count, nil
}
