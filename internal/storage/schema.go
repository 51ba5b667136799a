package storage

import "database/sql"

// migrations is an ordered list of schema migrations, in the style of
// mind-palace's internal/memory/schema.go: never edit a shipped entry,
// only append.
var migrations = []func(*sql.Tx) error{
	migrateV0,
	migrateV1,
}

func migrateV0(tx *sql.Tx) error {
	const schema = `
CREATE TABLE IF NOT EXISTS roots (
	root_id    TEXT PRIMARY KEY,
	abs_path   TEXT NOT NULL UNIQUE,
	label      TEXT DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	path          TEXT PRIMARY KEY,
	root_id       TEXT NOT NULL REFERENCES roots(root_id),
	rel_path      TEXT NOT NULL,
	repo          TEXT DEFAULT '',
	mtime         INTEGER NOT NULL,
	size          INTEGER NOT NULL,
	content_hash  TEXT DEFAULT '',
	content       BLOB,
	fts_content   TEXT DEFAULT '',
	last_seen_ts  INTEGER NOT NULL,
	deleted_ts    INTEGER DEFAULT 0,
	parse_status  TEXT DEFAULT 'pending',
	ast_status    TEXT DEFAULT 'pending',
	reason_code   TEXT DEFAULT '',
	is_binary     INTEGER DEFAULT 0,
	is_minified   INTEGER DEFAULT 0,
	sampled       INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_files_root ON files(root_id);
CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repo);
CREATE INDEX IF NOT EXISTS idx_files_last_seen ON files(last_seen_ts);
CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(deleted_ts);

CREATE VIEW IF NOT EXISTS files_view AS
	SELECT rowid, path, repo, content FROM files;

CREATE TABLE IF NOT EXISTS symbols (
	symbol_id  TEXT PRIMARY KEY,
	path       TEXT NOT NULL REFERENCES files(path),
	root_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	qualname   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	line       INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	content    TEXT DEFAULT '',
	parent     TEXT DEFAULT '',
	metadata   TEXT DEFAULT '{}',
	docstring  TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_qualname ON symbols(qualname);
CREATE INDEX IF NOT EXISTS idx_symbols_path_line ON symbols(path, line);

CREATE TABLE IF NOT EXISTS symbol_relations (
	from_path      TEXT NOT NULL,
	from_symbol    TEXT DEFAULT '',
	from_symbol_id TEXT DEFAULT '',
	to_path        TEXT DEFAULT '',
	to_symbol      TEXT DEFAULT '',
	to_symbol_id   TEXT DEFAULT '',
	rel_type       TEXT NOT NULL,
	line           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relations_from ON symbol_relations(from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_relations_to ON symbol_relations(to_symbol_id);
CREATE INDEX IF NOT EXISTS idx_relations_from_path ON symbol_relations(from_path);

CREATE TABLE IF NOT EXISTS failed_tasks (
	id            TEXT PRIMARY KEY,
	task_kind     TEXT NOT NULL,
	target_path   TEXT NOT NULL,
	attempts      INTEGER DEFAULT 0,
	last_err_code TEXT DEFAULT '',
	last_err_msg  TEXT DEFAULT '',
	next_retry_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failed_tasks_path ON failed_tasks(target_path);

CREATE TABLE IF NOT EXISTS snippets (
	id         TEXT PRIMARY KEY,
	path       TEXT DEFAULT '',
	symbol_id  TEXT DEFAULT '',
	label      TEXT DEFAULT '',
	content    TEXT NOT NULL,
	tags       TEXT DEFAULT '',
	created_at TEXT NOT NULL,
	valid_from TEXT DEFAULT '',
	valid_till TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS snippet_versions (
	snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (snippet_id, version)
);

CREATE TABLE IF NOT EXISTS contexts (
	id         TEXT PRIMARY KEY,
	scope      TEXT NOT NULL,
	scope_path TEXT DEFAULT '',
	note       TEXT NOT NULL,
	tags       TEXT DEFAULT '',
	created_at TEXT NOT NULL,
	valid_from TEXT DEFAULT '',
	valid_till TEXT DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
	path,
	repo,
	content,
	content='files_view',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS files_fts_ai AFTER INSERT ON files BEGIN
	INSERT INTO files_fts(rowid, path, repo, content)
	SELECT rowid, path, repo, content FROM files_view WHERE rowid = new.rowid;
END;

CREATE TRIGGER IF NOT EXISTS files_fts_ad AFTER DELETE ON files BEGIN
	INSERT INTO files_fts(files_fts, rowid, path, repo, content)
	VALUES ('delete', old.rowid, old.path, old.repo, old.content);
END;

CREATE TRIGGER IF NOT EXISTS files_fts_au AFTER UPDATE ON files BEGIN
	INSERT INTO files_fts(files_fts, rowid, path, repo, content)
	VALUES ('delete', old.rowid, old.path, old.repo, old.content);
	INSERT INTO files_fts(rowid, path, repo, content)
	SELECT rowid, path, repo, content FROM files_view WHERE rowid = new.rowid;
END;
`
	_, err := tx.Exec(schema)
	return err
}

// migrateV1 repoints files_fts at fts_content (the tokenizer-normalized
// text) instead of the raw compressed content blob migrateV0's view
// exposed: FTS5 matching against zlib bytes would never find a real term.
func migrateV1(tx *sql.Tx) error {
	const schema = `
DROP TRIGGER IF EXISTS files_fts_ai;
DROP TRIGGER IF EXISTS files_fts_ad;
DROP TRIGGER IF EXISTS files_fts_au;
DROP TABLE IF EXISTS files_fts;
DROP VIEW IF EXISTS files_view;

CREATE VIEW files_view AS
	SELECT rowid, path, repo, fts_content AS content FROM files;

CREATE VIRTUAL TABLE files_fts USING fts5(
	path,
	repo,
	content,
	content='files_view',
	content_rowid='rowid'
);

INSERT INTO files_fts(rowid, path, repo, content)
	SELECT rowid, path, repo, content FROM files_view;

CREATE TRIGGER files_fts_ai AFTER INSERT ON files BEGIN
	INSERT INTO files_fts(rowid, path, repo, content)
	SELECT rowid, path, repo, content FROM files_view WHERE rowid = new.rowid;
END;

CREATE TRIGGER files_fts_ad AFTER DELETE ON files BEGIN
	INSERT INTO files_fts(files_fts, rowid, path, repo, content)
	VALUES ('delete', old.rowid, old.path, old.repo, old.fts_content);
END;

CREATE TRIGGER files_fts_au AFTER UPDATE ON files BEGIN
	INSERT INTO files_fts(files_fts, rowid, path, repo, content)
	VALUES ('delete', old.rowid, old.path, old.repo, old.fts_content);
	INSERT INTO files_fts(rowid, path, repo, content)
	SELECT rowid, path, repo, content FROM files_view WHERE rowid = new.rowid;
END;
`
	_, err := tx.Exec(schema)
	return err
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);`
