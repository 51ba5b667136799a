// Package watcher implements component D: an fsnotify-driven recursive
// watch of a workspace root, coalesced through a per-path dedup queue, an
// adaptive per-root debounce window, and a token bucket that couples
// enqueue rate to the storage writer's batching capacity.
//
// Grounded on the teacher's internal/indexing/watcher.go (FileWatcher,
// recursive addWatches with symlink-cycle guarding, event-type dispatch),
// generalized from the teacher's single fixed debounce timer to the
// adaptive per-root debouncer spec.md §4.4 requires, and extended with a
// token bucket the teacher has no equivalent for.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/deckard/internal/debuglog"
	"github.com/standardbeagle/deckard/internal/types"
)

// Watcher monitors one workspace root and emits coalesced types.FsEvent
// values to Sink, throttled by a token bucket.
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher

	dedup     *dedupQueue
	debouncer *adaptiveDebouncer
	bucket    *tokenBucket

	sink func(types.FsEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shouldWatch func(path string) bool

	backpressureThreshold float64
}

// Options configures a Watcher.
type Options struct {
	MinDelay        time.Duration
	MaxDelay        time.Duration
	TokenBucketCap  int
	TokenFillPerSec int
	ShouldWatch     func(path string) bool // nil means watch everything

	// BackpressureThreshold is the writer queue load ratio above which
	// Throttle starts scaling the token bucket's fill rate down, per
	// spec.md §4.6. Zero means use 0.8.
	BackpressureThreshold float64
}

// New creates a Watcher rooted at root. Call Start to begin watching.
func New(root string, opts Options, sink func(types.FsEvent)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.MinDelay <= 0 {
		opts.MinDelay = 50 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 2 * time.Second
	}
	if opts.ShouldWatch == nil {
		opts.ShouldWatch = func(string) bool { return true }
	}
	if opts.BackpressureThreshold <= 0 {
		opts.BackpressureThreshold = 0.8
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		root:                  root,
		fsw:                   fsw,
		dedup:                 newDedupQueue(),
		debouncer:             newAdaptiveDebouncer(opts.MinDelay, opts.MaxDelay),
		bucket:                newTokenBucket(opts.TokenBucketCap, opts.TokenFillPerSec),
		sink:                  sink,
		ctx:                   ctx,
		cancel:                cancel,
		shouldWatch:           opts.ShouldWatch,
		backpressureThreshold: opts.BackpressureThreshold,
	}
	return w, nil
}

// Start adds recursive watches under root and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.debouncer.run(w.ctx, &w.wg, w.flush)

	debuglog.Printf("watcher: started for %s", w.root)
	return nil
}

// Stop halts the fsnotify watcher and waits for goroutines to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		real, evalErr := filepath.EvalSymlinks(path)
		if evalErr != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if filepath.Base(path) == ".git" || filepath.Base(path) == "node_modules" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("watcher: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	info, statErr := os.Stat(ev.Name)
	if statErr != nil {
		if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
			if w.shouldWatch(ev.Name) {
				w.dedup.put(ev.Name, types.FsEventDeleted)
				w.debouncer.noteActivity(w.root)
			}
		}
		return
	}

	if info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			if err := w.fsw.Add(ev.Name); err != nil {
				log.Printf("watcher: failed to add watch for new dir %s: %v", ev.Name, err)
			}
		}
		return
	}

	if !w.shouldWatch(ev.Name) {
		return
	}

	var kind types.FsEventKind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = types.FsEventCreated
	case ev.Op&fsnotify.Write != 0:
		kind = types.FsEventModified
	case ev.Op&fsnotify.Rename != 0:
		kind = types.FsEventMoved
	default:
		return
	}

	w.dedup.put(ev.Name, kind)
	w.debouncer.noteActivity(w.root)
}

// Throttle scales the token bucket's fill rate down when loadRatio (the
// storage writer queue's qsize/capacity) runs hot, and restores it once
// pressure eases, per spec.md §4.6: "when the writer queue load exceeds a
// threshold, Watcher's token bucket is throttled."
func (w *Watcher) Throttle(loadRatio float64) {
	w.bucket.scale(loadRatio, w.backpressureThreshold)
}

// flush is invoked by the adaptive debouncer once its window for root has
// elapsed with no further activity; it drains the dedup queue through the
// token bucket so downstream indexer load never exceeds the writer's
// batching capacity.
func (w *Watcher) flush() {
	pending := w.dedup.drain()
	for _, ev := range pending {
		w.bucket.wait(w.ctx)
		w.sink(ev)
	}
}
