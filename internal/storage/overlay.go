package storage

import (
	"container/list"
	"sync"

	"github.com/standardbeagle/deckard/internal/types"
)

// overlay is the in-memory LRU holding rows upserted by the writer but not
// yet (or recently) committed, so readers see fresh results immediately
// rather than waiting a batch interval. Entries are cleared per-path once
// the owning batch commits (see writeQueue.applyBatch), not on a timer.
//
// Grounded on the teacher's internal/cache LRU (list.List + map[K]*list.Element),
// generalized from caching parsed ASTs to caching just-written file rows.
type overlay struct {
	mu    sync.RWMutex
	limit int
	ll    *list.List
	items map[string]*list.Element
}

type overlayEntry struct {
	path string
	file types.File
}

func newOverlay(limit int) *overlay {
	if limit <= 0 {
		limit = 4096
	}
	return &overlay{
		limit: limit,
		ll:    list.New(),
		items: make(map[string]*list.Element, limit),
	}
}

func (o *overlay) put(f types.File) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := f.Path.String()
	if el, ok := o.items[key]; ok {
		el.Value.(*overlayEntry).file = f
		o.ll.MoveToFront(el)
		return
	}

	el := o.ll.PushFront(&overlayEntry{path: key, file: f})
	o.items[key] = el

	for o.ll.Len() > o.limit {
		back := o.ll.Back()
		if back == nil {
			break
		}
		o.ll.Remove(back)
		delete(o.items, back.Value.(*overlayEntry).path)
	}
}

func (o *overlay) get(path string) (types.File, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	el, ok := o.items[path]
	if !ok {
		return types.File{}, false
	}
	return el.Value.(*overlayEntry).file, true
}

func (o *overlay) clear(paths []string) {
	if len(paths) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range paths {
		if el, ok := o.items[p]; ok {
			o.ll.Remove(el)
			delete(o.items, p)
		}
	}
}
