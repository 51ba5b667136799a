package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

// SaveSnippet inserts a new snippet (generating an id when s.ID is empty)
// or appends a new version to an existing one, backing the tool
// registry's save_snippet handler. Every save appends a row to
// snippet_versions, so no prior revision is lost there; the snippets row
// itself is updated in place.
func (k *Kernel) SaveSnippet(ctx context.Context, s types.Snippet) (types.Snippet, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	err := k.writer.enqueue(nil, func(tx *sql.Tx) error {
		var version int
		row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM snippet_versions WHERE snippet_id = ?`, s.ID)
		if err := row.Scan(&version); err != nil {
			return err
		}
		version++

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snippets(id, path, symbol_id, label, content, tags, created_at, valid_from, valid_till)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				content = excluded.content,
				tags    = excluded.tags,
				valid_till = excluded.valid_till`,
			s.ID, s.Path.String(), s.SymbolID.String(), s.Label, s.Content,
			strings.Join(s.Tags, ","), s.CreatedAt.Format(time.RFC3339Nano),
			formatOptionalTime(s.ValidFrom), formatOptionalTime(s.ValidTill)); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO snippet_versions(snippet_id, version, content, created_at)
			VALUES (?, ?, ?, ?)`,
			s.ID, version, s.Content, time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
	return s, err
}

// GetSnippet returns a snippet by id, backing the tool registry's
// get_snippet handler.
func (k *Kernel) GetSnippet(ctx context.Context, id string) (types.Snippet, error) {
	row := k.readDB.QueryRowContext(ctx, `
		SELECT id, path, symbol_id, label, content, tags, created_at, valid_from, valid_till
		FROM snippets WHERE id = ?`, id)

	var s types.Snippet
	var path, symbolID, tags, createdAt, validFrom, validTill string
	if err := row.Scan(&s.ID, &path, &symbolID, &s.Label, &s.Content, &tags, &createdAt, &validFrom, &validTill); err != nil {
		return types.Snippet{}, deckerrors.Wrap(deckerrors.CodeNotIndexed, err, "get_snippet query")
	}
	s.Path = types.FileID(path)
	s.SymbolID = types.SymbolID(symbolID)
	if tags != "" {
		s.Tags = strings.Split(tags, ",")
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	s.ValidFrom = parseOptionalTime(validFrom)
	s.ValidTill = parseOptionalTime(validTill)
	return s, nil
}

// SaveContext inserts an archived context note, backing the tool
// registry's archive_context handler.
func (k *Kernel) SaveContext(ctx context.Context, c types.Context) (types.Context, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := k.writer.enqueue(nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contexts(id, scope, scope_path, note, tags, created_at, valid_from, valid_till)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				note = excluded.note,
				tags = excluded.tags,
				valid_till = excluded.valid_till`,
			c.ID, c.Scope, c.ScopePath, c.Note, strings.Join(c.Tags, ","),
			c.CreatedAt.Format(time.RFC3339Nano),
			formatOptionalTime(c.ValidFrom), formatOptionalTime(c.ValidTill))
		return err
	})
	return c, err
}

// GetContext returns every archived context note scoped to scopePath,
// most recent first, backing the tool registry's get_context handler.
func (k *Kernel) GetContext(ctx context.Context, scopePath string) ([]types.Context, error) {
	rows, err := k.readDB.QueryContext(ctx, `
		SELECT id, scope, scope_path, note, tags, created_at, valid_from, valid_till
		FROM contexts WHERE scope_path = ? ORDER BY created_at DESC`, scopePath)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "get_context query")
	}
	defer rows.Close()

	var out []types.Context
	for rows.Next() {
		var c types.Context
		var tags, createdAt, validFrom, validTill string
		if err := rows.Scan(&c.ID, &c.Scope, &c.ScopePath, &c.Note, &tags, &createdAt, &validFrom, &validTill); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan context row")
		}
		if tags != "" {
			c.Tags = strings.Split(tags, ",")
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		c.ValidFrom = parseOptionalTime(validFrom)
		c.ValidTill = parseOptionalTime(validTill)
		out = append(out, c)
	}
	return out, rows.Err()
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseOptionalTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
