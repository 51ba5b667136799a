// Package scanner implements component C: a recursive walk of a workspace
// root yielding (path, mtime, size) tuples, filtered by include/exclude
// lists, max depth and symlink policy. Grounded on the teacher's
// internal/indexing include/exclude resolution (include_resolver.go),
// generalized from the teacher's in-memory index target to spec.md §4.3's
// plain ScanEntry stream.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/deckard/internal/types"
)

// Options configures one walk of a root.
type Options struct {
	IncludeExt   []string // e.g. [".go", ".py"]; empty means all extensions
	IncludeFiles []string // exact basenames always included regardless of extension
	ExcludeDirs  []string // directory basenames to prune, e.g. "node_modules", ".git"
	ExcludeGlobs []string // doublestar glob patterns matched against the root-relative path
	MaxDepth     int      // 0 or less means 64
	FollowSymlinks bool
}

// DefaultExcludeDirs mirrors the teacher's own defaults for directories that
// are essentially never worth indexing.
var DefaultExcludeDirs = []string{
	".git", "node_modules", "vendor", ".venv", "__pycache__",
	"dist", "build", "target", ".idea", ".vscode",
}

// Scanner walks one workspace root.
type Scanner struct {
	root string
	opts Options
}

// New creates a Scanner rooted at absRoot.
func New(absRoot string, opts Options) *Scanner {
	if len(opts.ExcludeDirs) == 0 {
		opts.ExcludeDirs = DefaultExcludeDirs
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 64
	}
	return &Scanner{root: absRoot, opts: opts}
}

// Walk yields one ScanEntry per file under the root, in directory order;
// files excluded by glob or extension are yielded too, with ExcludedReason
// set. It always uses the in-process walker and does not call NativeWalk,
// the native subprocess fast path described in spec.md §4.3.
func (s *Scanner) Walk(yield func(types.ScanEntry) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission errors and the like are skipped, not fatal to the walk.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if path == s.root {
				return nil
			}
			if s.depthOf(rel) > s.opts.MaxDepth {
				return filepath.SkipDir
			}
			if s.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !s.opts.FollowSymlinks {
				return nil
			}
			info, statErr := os.Stat(path)
			if statErr != nil {
				return nil
			}
			return s.emit(yield, path, rel, info)
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		return s.emit(yield, path, rel, info)
	})
}

func (s *Scanner) emit(yield func(types.ScanEntry) error, absPath, rel string, info fs.FileInfo) error {
	reason := s.excludedReason(rel)
	entry := types.ScanEntry{
		AbsPath:        absPath,
		Mtime:          info.ModTime(),
		Size:           info.Size(),
		ExcludedReason: reason,
	}
	return yield(entry)
}

func (s *Scanner) depthOf(rel string) int {
	if rel == "." {
		return 0
	}
	n := 1
	for _, c := range rel {
		if c == filepath.Separator {
			n++
		}
	}
	return n
}

func (s *Scanner) excludedDir(name string) bool {
	for _, ex := range s.opts.ExcludeDirs {
		if ex == name {
			return true
		}
	}
	return false
}

// excludedReason returns a non-empty reason string when rel should be
// skipped by include/exclude policy, leaving the final decision to the
// caller (the entry is still yielded, carrying its reason, per spec.md
// §4.3's "(path, mtime, size, excluded_reason?)" contract).
func (s *Scanner) excludedReason(rel string) string {
	base := filepath.Base(rel)
	for _, f := range s.opts.IncludeFiles {
		if f == base {
			return ""
		}
	}

	for _, g := range s.opts.ExcludeGlobs {
		if ok, _ := doublestar.PathMatch(g, rel); ok {
			return "excluded_glob:" + g
		}
	}

	if len(s.opts.IncludeExt) == 0 {
		return ""
	}
	ext := filepath.Ext(rel)
	for _, e := range s.opts.IncludeExt {
		if e == ext {
			return ""
		}
	}
	return "extension_not_included:" + ext
}

// ScanStartTimestamp is a small convenience the Indexer uses to stamp
// scan_start_ts before a full pass, kept here since it is conceptually
// part of "starting a scan."
func ScanStartTimestamp() time.Time { return time.Now().UTC() }
