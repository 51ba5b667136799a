package storage

import (
	"sync"

	"github.com/standardbeagle/deckard/internal/config"
	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// manager is the process-wide storage singleton spec.md §5 describes: one
// daemon process holds exactly one open Kernel at a time, and refuses to
// switch to a different database path if the previous writer did not shut
// down cleanly, so a half-flushed writer can never be silently abandoned.
type manager struct {
	mu          sync.Mutex
	current     *Kernel
	currentPath string
	dirty       bool // true if the last Close did not complete cleanly
}

var global = &manager{}

// Acquire returns the shared Kernel for cfg.DBPath, opening it if this is
// the first call or the path has changed. Switching paths is refused with
// *deckerrors.SwitchGuardRefusal when the previous kernel's Close failed.
func Acquire(cfg config.Storage) (*Kernel, error) {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.current != nil && global.currentPath == cfg.DBPath {
		return global.current, nil
	}

	if global.current != nil {
		if global.dirty {
			return nil, &deckerrors.SwitchGuardRefusal{Reason: "previous writer did not shut down cleanly"}
		}
		if err := global.current.Close(); err != nil {
			global.dirty = true
			return nil, deckerrors.Wrap(deckerrors.CodeEngineUnavailable, err, "closing previous storage kernel")
		}
	}

	k, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	global.current = k
	global.currentPath = cfg.DBPath
	global.dirty = false
	return k, nil
}

// ReleaseForTest closes and clears the singleton; only meant for test setup.
func ReleaseForTest() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.current != nil {
		global.current.Close()
	}
	global.current = nil
	global.currentPath = ""
	global.dirty = false
}
