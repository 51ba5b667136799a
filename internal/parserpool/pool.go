// Package parserpool runs the bounded worker set spec.md §4.5 describes:
// dispatch by extension (falling back to content/shebang sniffing), a
// language parser per file, and Symbol/Relation rows out the other side.
// Concurrency is capped by a golang.org/x/sync/semaphore of maxWorkers
// slots, generalizing the teacher's indexing pipeline
// concurrency control (internal/indexing/pipeline_processor.go's
// worker-count handling) the same way rclone's hidrive backend uses a
// semaphore.Weighted to cap parallel chunk transfers
// (backend/hidrive/helpers.go). A resource governor computes a worker
// budget that Workers reports; it does not resize the semaphore.
package parserpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/deckard/internal/parserpool/langs"
	"github.com/standardbeagle/deckard/internal/scanner"
	"github.com/standardbeagle/deckard/internal/types"
)

// Task is one file handed to the pool for extraction.
type Task struct {
	Path    types.FileID
	RootID  types.RootID
	RelPath string
	Content []byte
}

// Result is what a worker produced for one Task.
type Result struct {
	Path       types.FileID
	Symbols    []types.Symbol
	Status     types.ParseStatus
	ReasonCode string
	Err        error
}

// Pool is the bounded parser worker set. Callers submit Tasks and drain
// Results; submission never blocks the caller beyond the semaphore's
// acquire, and a parser failure becomes a Result with Status=failed
// rather than ever killing a worker goroutine.
type Pool struct {
	sem     *semaphore.Weighted
	gov     *governor
	results chan Result
	wg      sync.WaitGroup
}

// New builds a pool (spec's "bounded worker set") whose governor budget is
// sized around baseWorkers, 0 meaning runtime.NumCPU; the semaphore always
// has maxWorkers slots.
func New(baseWorkers int) *Pool {
	gov := newGovernor(baseWorkers)
	gov.start()
	return &Pool{
		sem:     semaphore.NewWeighted(int64(maxWorkers)),
		gov:     gov,
		results: make(chan Result, 256),
	}
}

const maxWorkers = 256

// Close stops the governor and waits for in-flight workers to finish.
func (p *Pool) Close() {
	p.gov.stop()
	p.wg.Wait()
	close(p.results)
}

// Results returns the channel workers publish Results on.
func (p *Pool) Results() <-chan Result { return p.results }

// Submit blocks until one of the maxWorkers slots is available (the
// governor does not change that cap) or ctx is done, then extracts t's
// symbols on a new goroutine and publishes the Result.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		p.results <- p.process(t)
	}()
	return nil
}

// Workers reports the pool's current governor-sized worker budget, for
// callers (the indexer) that want to pace submission rather than rely
// solely on the semaphore blocking.
func (p *Pool) Workers() int { return p.gov.workers() }

// Parse runs extraction for t synchronously on the calling goroutine,
// bypassing the worker semaphore and results channel entirely. It backs
// the tool registry's dry_run_diff handler, which needs one immediate
// answer for hypothetical content rather than a Submit/Results round
// trip through the pool's async worker set.
func (p *Pool) Parse(t Task) Result {
	return p.process(t)
}

func (p *Pool) process(t Task) Result {
	lang := dispatchLang(t.RelPath, t.Content)
	if lang == nil {
		return Result{Path: t.Path, Status: types.ParseStatusSkipped, ReasonCode: "no_parser"}
	}

	content := t.Content
	sampled := false
	if len(content) > 2*scanner.SampleChunkBytes {
		content = scanner.Sample(content)
		sampled = true
	}

	extracted, err := lang.Extract(content)
	if err != nil {
		return Result{
			Path:       t.Path,
			Status:     types.ParseStatusFailed,
			ReasonCode: "parse_error",
			Err:        fmt.Errorf("%s: %w", lang.Name, err),
		}
	}

	symbols := make([]types.Symbol, 0, len(extracted))
	for _, e := range extracted {
		symbols = append(symbols, types.Symbol{
			SymbolID: types.NewSymbolID(t.Path.String(), string(e.Kind), e.QualName),
			Path:     t.Path,
			RootID:   t.RootID,
			Name:     e.Name,
			QualName: e.QualName,
			Kind:     e.Kind,
			Line:     e.Line,
			EndLine:  e.EndLine,
		})
	}

	status := types.ParseStatusOK
	reason := ""
	if sampled {
		reason = "sampled"
	}
	return Result{Path: t.Path, Symbols: symbols, Status: status, ReasonCode: reason}
}

// dispatchLang resolves a Lang bundle by extension first, falling back
// to scanner.SniffLanguage's shebang/content probe for extensionless
// scripts, per spec.md §4.5.
func dispatchLang(relPath string, content []byte) *langs.Lang {
	ext := extOf(relPath)
	if l := langs.ForExtension(ext); l != nil {
		return l
	}
	if ext != "" {
		return nil
	}
	sniffed := scanner.SniffLanguage(content)
	if sniffed == "" {
		return nil
	}
	for _, l := range langs.All {
		if l.Name == sniffed {
			return l
		}
	}
	return nil
}

func extOf(relPath string) string {
	for i := len(relPath) - 1; i >= 0; i-- {
		switch relPath[i] {
		case '.':
			return relPath[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}

// Backoff computes the DLQ's exponential retry delay for a failed task's
// Nth attempt, capped at a day, matching spec.md §4.6's dead-letter
// handling (consumed by internal/indexer, defined here alongside the
// failures it schedules).
func Backoff(attempt int) time.Duration {
	d := time.Second
	for i := 0; i < attempt && d < 24*time.Hour; i++ {
		d *= 2
	}
	if d > 24*time.Hour {
		d = 24 * time.Hour
	}
	return d
}
