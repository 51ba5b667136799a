package storage

import (
	"bytes"
	"database/sql"
	"runtime"
	"strconv"
	"sync"
	"time"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// writeTask is one unit of writer work: a closure applied inside the
// batch's single transaction, plus the set of paths it touches (used to
// drive overlay invalidation and post-commit subscriber notification) and a
// channel the caller blocks on for completion.
type writeTask struct {
	apply func(*sql.Tx) error
	paths []string
	done  chan error
}

// writeQueue is the bounded FIFO batching layer described in spec.md §4.1:
// tasks enqueue from any goroutine, but only the dedicated writer goroutine
// ever touches the database's single write connection. Batches drain on
// whichever comes first of max_batch tasks queued or max_wait elapsed.
type writeQueue struct {
	k *Kernel

	maxBatch int
	maxWait  time.Duration

	tasks chan *writeTask
	stopC chan struct{}
	doneC chan struct{}

	writerGoroutineID uint64
}

func newWriteQueue(k *Kernel, maxBatch int, maxWait time.Duration) *writeQueue {
	if maxBatch <= 0 {
		maxBatch = 256
	}
	if maxWait <= 0 {
		maxWait = 50 * time.Millisecond
	}
	return &writeQueue{
		k:        k,
		maxBatch: maxBatch,
		maxWait:  maxWait,
		tasks:    make(chan *writeTask, maxBatch*4),
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
	}
}

func (q *writeQueue) start() {
	go q.run()
}

func (q *writeQueue) stop() {
	close(q.stopC)
	<-q.doneC
}

// run is the single designated writer goroutine. Its goroutine ID is
// captured on entry and never changes for the life of the queue; requireWriter
// uses it to detect any code path that reaches the low-level apply methods
// from outside this loop, which would violate the single-writer invariant
// spec.md §5 calls out explicitly.
func (q *writeQueue) run() {
	q.writerGoroutineID = currentGoroutineID()
	defer close(q.doneC)

	batch := make([]*writeTask, 0, q.maxBatch)
	timer := time.NewTimer(q.maxWait)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		q.applyBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-q.stopC:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case t := <-q.tasks:
					batch = append(batch, t)
				default:
					flush()
					return
				}
			}
		case t := <-q.tasks:
			batch = append(batch, t)
			if len(batch) >= q.maxBatch {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(q.maxWait)
			}
		case <-timer.C:
			flush()
			timer.Reset(q.maxWait)
		}
	}
}

// applyBatch runs every queued task's apply function inside one
// transaction, commits once, then clears the overlay and notifies
// subscribers for every touched path. Every task's done channel receives the
// same error: the first apply error in the batch (which rolls the whole
// batch back), or else the commit error.
func (q *writeQueue) applyBatch(batch []*writeTask) {
	q.requireWriter("applyBatch")

	tx, err := q.k.writeDB.Begin()
	if err != nil {
		wrapped := deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "begin write batch")
		for _, t := range batch {
			t.done <- wrapped
		}
		return
	}

	var touched []string
	var firstErr error
	for _, t := range batch {
		if applyErr := t.apply(tx); applyErr != nil && firstErr == nil {
			firstErr = applyErr
		}
		touched = append(touched, t.paths...)
	}

	if firstErr != nil {
		tx.Rollback()
		for _, t := range batch {
			t.done <- firstErr
		}
		return
	}

	commitErr := tx.Commit()
	if commitErr == nil {
		q.k.overlay.clear(touched)
		q.k.notify(touched)
	}
	for _, t := range batch {
		t.done <- commitErr
	}
}

// enqueue is the only path public contract methods use to reach the
// writer: it is always safe to call from any goroutine. It blocks until the
// task's containing batch commits (or the queue is stopped).
func (q *writeQueue) enqueue(paths []string, apply func(*sql.Tx) error) error {
	t := &writeTask{apply: apply, paths: paths, done: make(chan error, 1)}
	select {
	case q.tasks <- t:
	case <-q.stopC:
		return deckerrors.New(deckerrors.CodeWriterThreadViolation, "writer queue stopped")
	}
	return <-t.done
}

// loadRatio reports the writer queue's current depth as a fraction of its
// capacity (spec.md §4.6's "qsize / capacity"), read by the indexer to
// decide when to throttle the watcher's token bucket.
func (q *writeQueue) loadRatio() float64 {
	return float64(len(q.tasks)) / float64(cap(q.tasks))
}

// requireWriter panics with a *deckerrors.WriterThreadViolation if called
// from any goroutine other than the one running the writer loop. Go has no
// OS-thread-bound goroutine identity, so this parses the "goroutine N
// [running]:" header runtime.Stack() always emits as the first line of a
// single-goroutine trace - the same trick the teacher's debug package uses
// to tag log lines with a caller goroutine, repurposed here to enforce
// rather than merely annotate.
func (q *writeQueue) requireWriter(op string) {
	id := currentGoroutineID()
	if id != q.writerGoroutineID {
		panic(&deckerrors.WriterThreadViolation{Operation: op, Goroutine: id})
	}
}

var goroutineIDPool = sync.Pool{New: func() any { return make([]byte, 64) }}

func currentGoroutineID() uint64 {
	buf := goroutineIDPool.Get().([]byte)
	defer goroutineIDPool.Put(buf)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	// "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	rest := buf[len(prefix):]
	sp := bytes.IndexByte(rest, ' ')
	if sp < 0 {
		return 0
	}
	id, _ := strconv.ParseUint(string(rest[:sp]), 10, 64)
	return id
}
