// Package storage implements component A, the single-writer SQLite kernel
// deckard's daemon process owns for one workspace root: a WAL-mode database
// with exactly one writer connection, a pool of read-only connections, an
// in-memory overlay for rows not yet durable, and a bounded task queue that
// batches writes the way the teacher's internal/config KDL loader batches
// nothing but mind-palace's internal/memory kernel batches everything.
//
// Grounded on mehmetkoksal-w-mind-palace's internal/memory package (single
// writer goroutine, WAL pragmas, migrations-by-append) and on the
// SimplyLiz-CodeMCP FTS manager's content-table/trigger sync idiom (see
// schema.go).
package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/standardbeagle/deckard/internal/config"
	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// Kernel owns one workspace root's database: the single writer connection,
// a read-only pool, the overlay, and the write-task queue.
type Kernel struct {
	cfg config.Storage

	writeDB *sql.DB
	readDB  *sql.DB

	overlay *overlay
	writer  *writeQueue

	mu      sync.RWMutex
	closed  bool

	subsMu sync.Mutex
	subs   []func(paths []string)
}

// Open creates or attaches to the database at cfg.DBPath, runs pending
// migrations on the writer connection, and starts the writer goroutine.
func Open(cfg config.Storage) (*Kernel, error) {
	writeDSN := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.DBPath, cfg.BusyTimeoutMs)
	writeDB, err := sql.Open("sqlite", writeDSN)
	if err != nil {
		return nil, deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "opening writer connection")
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)

	readDSN := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&mode=ro",
		cfg.DBPath, cfg.BusyTimeoutMs)
	readDB, err := sql.Open("sqlite", readDSN)
	if err != nil {
		writeDB.Close()
		return nil, deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "opening read pool")
	}
	maxRead := cfg.ReadPoolMax
	if maxRead <= 0 {
		maxRead = 32
	}
	readDB.SetMaxOpenConns(maxRead)

	k := &Kernel{
		cfg:     cfg,
		writeDB: writeDB,
		readDB:  readDB,
		overlay: newOverlay(cfg.OverlayLimit),
	}

	if err := k.migrate(); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, err
	}

	k.writer = newWriteQueue(k, cfg.MaxBatch, time.Duration(cfg.MaxWaitMs)*time.Millisecond)
	k.writer.start()

	return k, nil
}

func (k *Kernel) migrate() error {
	tx, err := k.writeDB.Begin()
	if err != nil {
		return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "begin migration tx")
	}
	if _, err := tx.Exec(schemaVersionTable); err != nil {
		tx.Rollback()
		return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "create schema_version")
	}

	var applied int
	row := tx.QueryRow(`SELECT COUNT(*) FROM schema_version`)
	if err := row.Scan(&applied); err != nil {
		tx.Rollback()
		return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "count schema_version")
	}

	for i := applied; i < len(migrations); i++ {
		if err := migrations[i](tx); err != nil {
			tx.Rollback()
			return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, fmt.Sprintf("apply migration %d", i))
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version, applied_at) VALUES (?, ?)`,
			i, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			tx.Rollback()
			return deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "record schema_version")
		}
	}

	return tx.Commit()
}

// Close flushes any pending writes and closes both connections.
func (k *Kernel) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	k.writer.stop()
	werr := k.writeDB.Close()
	rerr := k.readDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// GetReadConnection returns the shared read-only *sql.DB, satisfying the
// contract's get_read_connection() operation. Callers must not write
// through it; doing so will fail against the mode=ro DSN.
func (k *Kernel) GetReadConnection() *sql.DB {
	return k.readDB
}

// subscribe registers fn to be called, with the set of affected paths, after
// each committed write batch. Used by the FTS and search layers to
// invalidate caches without polling.
func (k *Kernel) subscribe(fn func(paths []string)) {
	k.subsMu.Lock()
	defer k.subsMu.Unlock()
	k.subs = append(k.subs, fn)
}

func (k *Kernel) notify(paths []string) {
	if len(paths) == 0 {
		return
	}
	k.subsMu.Lock()
	subs := make([]func([]string), len(k.subs))
	copy(subs, k.subs)
	k.subsMu.Unlock()
	for _, fn := range subs {
		fn(paths)
	}
}

// Subscribe is the exported form of subscribe, used by other components
// (fts, search) that live outside this package.
func (k *Kernel) Subscribe(fn func(paths []string)) { k.subscribe(fn) }

// LoadRatio reports the writer queue's current depth as a fraction of its
// capacity, spec.md §4.6's back-pressure signal: the indexer compares this
// against config.Index.BackpressureThreshold to decide whether to
// throttle the watcher's token bucket.
func (k *Kernel) LoadRatio() float64 { return k.writer.loadRatio() }
