package storage

import (
	"context"

	"github.com/standardbeagle/deckard/internal/types"
)

// ListSymbolsForPath returns every symbol recorded for path, ordered by
// line, backing the tool registry's list_symbols handler.
func (k *Kernel) ListSymbolsForPath(ctx context.Context, path types.FileID) ([]SymbolRef, error) {
	return k.querySymbolRefs(ctx, `
		SELECT s.symbol_id, s.path, s.root_id, f.repo, s.name, s.qualname, s.kind, s.line, s.end_line
		FROM symbols s JOIN files f ON f.path = s.path
		WHERE s.path = ? AND f.deleted_ts = 0
		ORDER BY s.line ASC`, []any{path.String()})
}

// FindImplementations returns edges of rel_type='implements'/'extends'
// targeting sid, backing the tool registry's get_implementations handler.
func (k *Kernel) FindImplementations(ctx context.Context, sid types.SymbolID, limit int) ([]RelationEdge, error) {
	if limit <= 0 {
		limit = 200
	}
	return k.queryRelations(ctx, `
		SELECT from_symbol_id, from_symbol, from_path, to_symbol_id, to_symbol, to_path, rel_type, line
		FROM symbol_relations
		WHERE to_symbol_id = ? AND rel_type IN ('implements', 'extends')
		LIMIT ?`, sid.String(), limit)
}
