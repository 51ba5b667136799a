package fts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqliteEngine searches the files_fts virtual table storage/schema.go
// maintains via triggers, modeled directly on the SimplyLiz-CodeMCP FTS
// manager's bm25-ranked MATCH query plus a LIKE fallback for queries FTS5
// rejects (unbalanced quotes, bare operators) rather than erroring the
// caller's whole search.
type sqliteEngine struct {
	db *sql.DB
}

func newSQLiteEngine(db *sql.DB) *sqliteEngine {
	return &sqliteEngine{db: db}
}

func (e *sqliteEngine) Status() Status {
	return Status{Mode: "sqlite", Ready: true}
}

// Install is a no-op: FTS5 is compiled into modernc.org/sqlite, so there
// is no external binary to fetch for this engine.
func (e *sqliteEngine) Install(ctx context.Context) error { return nil }

func (e *sqliteEngine) Rebuild(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `INSERT INTO files_fts(files_fts) VALUES('rebuild')`)
	return err
}

func (e *sqliteEngine) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 50
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	hits, err := e.matchSearch(ctx, query, limit)
	if err == nil && len(hits) > 0 {
		return hits, nil
	}
	return e.likeFallback(ctx, query, limit)
}

func (e *sqliteEngine) matchSearch(ctx context.Context, query string, limit int) ([]Hit, error) {
	ftsQuery := escapeFTS5Query(query)
	rows, err := e.db.QueryContext(ctx, `
		SELECT f.path, f.repo, snippet(files_fts, 2, '', '', '...', 12) AS snip,
			bm25(files_fts, 1.0, 0.3, 2.0) AS rank
		FROM files_fts
		JOIN files f ON f.rowid = files_fts.rowid
		WHERE files_fts MATCH ? AND f.deleted_ts = 0
		ORDER BY rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.Repo, &h.Snippet, &h.Rank); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// likeFallback is used both when FTS5 rejects the query syntax and when
// MATCH simply finds nothing, the same two-tier strategy the reference
// FTS manager uses (exact/prefix MATCH, then LIKE).
func (e *sqliteEngine) likeFallback(ctx context.Context, query string, limit int) ([]Hit, error) {
	pattern := "%" + query + "%"
	rows, err := e.db.QueryContext(ctx, `
		SELECT path, repo, substr(fts_content, 1, 160)
		FROM files
		WHERE deleted_ts = 0 AND fts_content LIKE ?
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.Repo, &h.Snippet); err != nil {
			return nil, err
		}
		h.Rank = 0.5
		out = append(out, h)
	}
	return out, rows.Err()
}

// escapeFTS5Query wraps the query as an FTS5 phrase, escaping embedded
// quotes, same shape as the reference FTS manager's escapeFTS5Query.
func escapeFTS5Query(query string) string {
	escaped := strings.ReplaceAll(query, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}
