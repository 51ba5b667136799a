package storage

import (
	"context"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/types"
)

// SymbolRef is one resolved symbol row, the unit callgraph.Resolve and its
// BFS traversal operate on.
type SymbolRef struct {
	SymbolID types.SymbolID
	Path     types.FileID
	RootID   types.RootID
	Repo     string
	Name     string
	QualName string
	Kind     types.SymbolKind
	Line     int
	EndLine  int
}

// FindSymbolByID resolves the exact-match branch of spec.md §4.8's
// resolution rule.
func (k *Kernel) FindSymbolByID(ctx context.Context, id types.SymbolID) (SymbolRef, bool, error) {
	row := k.readDB.QueryRowContext(ctx, `
		SELECT s.symbol_id, s.path, s.root_id, f.repo, s.name, s.qualname, s.kind, s.line, s.end_line
		FROM symbols s JOIN files f ON f.path = s.path
		WHERE s.symbol_id = ? AND f.deleted_ts = 0`, id.String())
	ref, err := scanSymbolRef(row)
	if err != nil {
		return SymbolRef{}, false, nil
	}
	return ref, true, nil
}

// FindSymbolsByName resolves spec.md §4.8's "by qualname/name with optional
// path, scoped to root_ids and repo" branch: an exact match on either
// column, optionally narrowed to path/rootIDs/repo, capped at limit (the
// spec's "up to 50 candidates").
func (k *Kernel) FindSymbolsByName(ctx context.Context, name, path, repo string, rootIDs []types.RootID, limit int) ([]SymbolRef, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT s.symbol_id, s.path, s.root_id, f.repo, s.name, s.qualname, s.kind, s.line, s.end_line
		FROM symbols s JOIN files f ON f.path = s.path
		WHERE f.deleted_ts = 0 AND (s.name = ? OR s.qualname = ?)`
	args := []any{name, name}
	if path != "" {
		query += " AND s.path = ?"
		args = append(args, path)
	}
	if repo != "" {
		query += " AND f.repo = ?"
		args = append(args, repo)
	}
	query, args = appendRootScope(query, args, "s.root_id", rootIDs)
	query += " ORDER BY s.qualname ASC LIMIT ?"
	args = append(args, limit)

	return k.querySymbolRefs(ctx, query, args)
}

// CandidateSymbolNames returns a bounded sample of distinct symbol names in
// scope, the fuzzy-match pool for spec.md §4.8's no-exact-match fallback.
func (k *Kernel) CandidateSymbolNames(ctx context.Context, rootIDs []types.RootID, repo string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5000
	}
	query := `
		SELECT DISTINCT s.name FROM symbols s JOIN files f ON f.path = s.path
		WHERE f.deleted_ts = 0`
	var args []any
	if repo != "" {
		query += " AND f.repo = ?"
		args = append(args, repo)
	}
	query, args = appendRootScope(query, args, "s.root_id", rootIDs)
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := k.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "candidate_symbol_names query")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan candidate name")
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// RelationEdge is one symbol_relations row, oriented the way the BFS
// traversal consumes it (From* is always the caller, To* the callee,
// regardless of which direction the traversal is walking).
type RelationEdge struct {
	FromSymbolID types.SymbolID
	FromSymbol   string
	FromPath     types.FileID
	ToSymbolID   types.SymbolID
	ToSymbol     string
	ToPath       types.FileID
	RelType      types.RelType
	Line         int
}

// CallersOf returns edges whose to_symbol_id is sid: the "up" BFS direction
// of spec.md §4.8's traversal.
func (k *Kernel) CallersOf(ctx context.Context, sid types.SymbolID, limit int) ([]RelationEdge, error) {
	return k.queryRelations(ctx, `
		SELECT from_symbol_id, from_symbol, from_path, to_symbol_id, to_symbol, to_path, rel_type, line
		FROM symbol_relations WHERE to_symbol_id = ? LIMIT ?`, sid.String(), limit)
}

// CalleesOf returns edges whose from_symbol_id is sid: the "down" BFS
// direction of spec.md §4.8's traversal.
func (k *Kernel) CalleesOf(ctx context.Context, sid types.SymbolID, limit int) ([]RelationEdge, error) {
	return k.queryRelations(ctx, `
		SELECT from_symbol_id, from_symbol, from_path, to_symbol_id, to_symbol, to_path, rel_type, line
		FROM symbol_relations WHERE from_symbol_id = ? LIMIT ?`, sid.String(), limit)
}

// FanIn is the total count of edges targeting sid, independent of the
// current traversal's budget, matching spec.md §4.8's confidence formula
// ("fan_in>50") which penalizes genuinely hub-like symbols rather than
// symbols that merely look busy within one bounded traversal.
func (k *Kernel) FanIn(ctx context.Context, sid types.SymbolID) (int, error) {
	var n int
	err := k.readDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM symbol_relations WHERE to_symbol_id = ?`, sid.String()).Scan(&n)
	if err != nil {
		return 0, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "fan_in query")
	}
	return n, nil
}

func (k *Kernel) queryRelations(ctx context.Context, query string, sid string, limit int) ([]RelationEdge, error) {
	if limit <= 0 {
		limit = 1200
	}
	rows, err := k.readDB.QueryContext(ctx, query, sid, limit)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "relation query")
	}
	defer rows.Close()

	var out []RelationEdge
	for rows.Next() {
		var e RelationEdge
		var fromSID, fromPath, toSID, toPath, relType string
		if err := rows.Scan(&fromSID, &e.FromSymbol, &fromPath, &toSID, &e.ToSymbol, &toPath, &relType, &e.Line); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan relation edge")
		}
		e.FromSymbolID = types.SymbolID(fromSID)
		e.FromPath = types.FileID(fromPath)
		e.ToSymbolID = types.SymbolID(toSID)
		e.ToPath = types.FileID(toPath)
		e.RelType = types.RelType(relType)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (k *Kernel) querySymbolRefs(ctx context.Context, query string, args []any) ([]SymbolRef, error) {
	rows, err := k.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "find_symbols query")
	}
	defer rows.Close()

	var out []SymbolRef
	for rows.Next() {
		var ref SymbolRef
		var symbolID, path, rootID, kind string
		if err := rows.Scan(&symbolID, &path, &rootID, &ref.Repo, &ref.Name, &ref.QualName, &kind, &ref.Line, &ref.EndLine); err != nil {
			return nil, deckerrors.Wrap(deckerrors.CodeEngineQuery, err, "scan symbol ref")
		}
		ref.SymbolID = types.SymbolID(symbolID)
		ref.Path = types.FileID(path)
		ref.RootID = types.RootID(rootID)
		ref.Kind = types.SymbolKind(kind)
		out = append(out, ref)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymbolRef(row rowScanner) (SymbolRef, error) {
	var ref SymbolRef
	var symbolID, path, rootID, kind string
	if err := row.Scan(&symbolID, &path, &rootID, &ref.Repo, &ref.Name, &ref.QualName, &kind, &ref.Line, &ref.EndLine); err != nil {
		return SymbolRef{}, err
	}
	ref.SymbolID = types.SymbolID(symbolID)
	ref.Path = types.FileID(path)
	ref.RootID = types.RootID(rootID)
	ref.Kind = types.SymbolKind(kind)
	return ref, nil
}

// FileSize returns a file's byte size, used by callgraph's quality
// score to weight the precision hint by how much content the symbol's
// home file actually carries.
func (k *Kernel) FileSize(ctx context.Context, path types.FileID) (int64, error) {
	var size int64
	err := k.readDB.QueryRowContext(ctx, `SELECT size FROM files WHERE path = ? AND deleted_ts = 0`, path.String()).Scan(&size)
	if err != nil {
		return 0, deckerrors.Wrap(deckerrors.CodeNotIndexed, err, "file_size query")
	}
	return size, nil
}
