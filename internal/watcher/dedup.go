package watcher

import (
	"sync"
	"time"

	"github.com/standardbeagle/deckard/internal/types"
)

// dedupQueue holds at most one pending task per path: a later event for the
// same path overwrites the earlier one ("latest-action-wins coalescing"
// per spec.md §4.4), so a rapid write-write-write burst collapses to a
// single MODIFIED event by the time the debounce window flushes.
type dedupQueue struct {
	mu      sync.Mutex
	pending map[string]types.FsEvent
}

func newDedupQueue() *dedupQueue {
	return &dedupQueue{pending: make(map[string]types.FsEvent)}
}

func (q *dedupQueue) put(path string, kind types.FsEventKind) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[path] = types.FsEvent{Kind: kind, Path: path, Ts: time.Now().UTC()}
}

// drain removes and returns every pending event, resetting the queue.
func (q *dedupQueue) drain() []types.FsEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := make([]types.FsEvent, 0, len(q.pending))
	for _, ev := range q.pending {
		out = append(out, ev)
	}
	q.pending = make(map[string]types.FsEvent)
	return out
}

func (q *dedupQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
