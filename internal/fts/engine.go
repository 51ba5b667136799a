package fts

import (
	"context"
	"database/sql"
)

// Hit is one FTS match, joined back against the files table.
type Hit struct {
	Path    string
	Repo    string
	Snippet string
	Rank    float64
}

// Status reports an engine's install/availability state, modeled on
// spec.md §4.2's engine lifecycle for the optional embedded FTS binary.
type Status struct {
	Mode        string // "sqlite" or "embedded"
	Ready       bool
	Reason      string
	Installing  bool
}

// Engine is the interface both the always-available sqlite-backed engine
// and the embedded-engine stub implement, so callers (search, tools) never
// need to know which is active.
type Engine interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Status() Status
	Install(ctx context.Context) error
	Rebuild(ctx context.Context) error
}

// New constructs the configured engine. mode "embedded" yields the stub
// collaborator; anything else (including the default "sqlite") yields the
// FTS5-backed engine against db.
func New(mode string, db *sql.DB) Engine {
	if mode == "embedded" {
		return newEmbeddedEngine()
	}
	return newSQLiteEngine(db)
}
