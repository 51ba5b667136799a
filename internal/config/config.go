// Package config loads and validates deckard's configuration: a project
// root, the storage/engine/search knobs spec.md §6 names, and the
// recognized DECKARD_*/SARI_* environment overrides. Structure and KDL
// loading style follow the teacher's internal/config package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config is deckard's fully-resolved runtime configuration.
type Config struct {
	Project     Project
	Storage     Storage
	Index       Index
	Watch       Watch
	Performance Performance
	Engine      Engine
	Search      Search
	CallGraph   CallGraph
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
	Name string
}

// Storage configures the SQLite-backed storage kernel (spec §4.1).
type Storage struct {
	DBPath        string
	MaxBatch      int
	MaxWaitMs     int
	ReadPoolMax   int
	OverlayLimit  int
	BusyTimeoutMs int
}

type Index struct {
	MaxFileSize    int64
	MaxTotalSizeMB int64
	MaxFileCount   int
	FollowSymlinks bool
	RespectGitignore bool
	MaxDepth       int

	// MaxAttempts bounds a failed task's exponential-backoff retries
	// (spec.md §4.6) before it is left parked in failed_tasks and counted
	// as dlq_failed_high.
	MaxAttempts int
	// BackpressureThreshold is the writer queue load ratio (qsize /
	// capacity) above which the watcher's token bucket is throttled.
	BackpressureThreshold float64
}

// Watch configures the watcher's debouncer and token bucket (spec §4.4).
type Watch struct {
	Enabled          bool
	MinDelayMs       int
	MaxDelayMs       int
	TokenBucketCap   int
	TokenFillPerSec  int
}

type Performance struct {
	MaxGoroutines      int
	ParallelWorkers    int // 0 = auto (governor-sized)
	IndexingTimeoutSec int
}

// Engine configures the FTS engine (spec §4.2).
type Engine struct {
	Mode             string // "sqlite" or "embedded"
	AutoInstall      bool
	MaxDocBytes      int
	PreviewBytes     int
	LinderaDictPath  string
}

type Search struct {
	DefaultLimit   int
	SnippetLines   int
	SnippetMaxBytes int
}

// CallGraph configures default budgets for the call-graph service (spec §4.8).
type CallGraph struct {
	MaxNodes  int
	MaxEdges  int
	MaxDepth  int
	MaxTimeMs int

	// PluginDir, when non-empty, is scanned for augment_neighbors /
	// filter_neighbors .so plugins (spec.md §4.8's plugin hook). Empty
	// disables plugin loading, the default.
	PluginDir string
}

// Default returns deckard's baseline configuration for root, before any
// KDL file or environment overrides are applied.
func Default(root string) *Config {
	return &Config{
		Project: Project{Root: root},
		Storage: Storage{
			DBPath:        filepath.Join(root, ".codex", "tools", "deckard", "data", "index.db"),
			MaxBatch:      256,
			MaxWaitMs:     50,
			ReadPoolMax:   32,
			OverlayLimit:  4096,
			BusyTimeoutMs: 2000,
		},
		Index: Index{
			MaxFileSize:           10 * 1024 * 1024,
			MaxTotalSizeMB:        500,
			MaxFileCount:          50000,
			FollowSymlinks:        false,
			RespectGitignore:      true,
			MaxDepth:              64,
			MaxAttempts:           5,
			BackpressureThreshold: 0.8,
		},
		Watch: Watch{
			Enabled:         true,
			MinDelayMs:      50,
			MaxDelayMs:      2000,
			TokenBucketCap:  512,
			TokenFillPerSec: 256,
		},
		Performance: Performance{
			MaxGoroutines:      runtime.NumCPU() * 2,
			ParallelWorkers:    0,
			IndexingTimeoutSec: 120,
		},
		Engine: Engine{
			Mode:         "sqlite",
			AutoInstall:  true,
			MaxDocBytes:  1 << 20,
			PreviewBytes: 4096,
		},
		Search: Search{
			DefaultLimit:    50,
			SnippetLines:    4,
			SnippetMaxBytes: 2048,
		},
		CallGraph: CallGraph{
			MaxNodes:  400,
			MaxEdges:  1200,
			MaxDepth:  6,
			MaxTimeMs: 2000,
		},
	}
}

// Load resolves a full configuration: defaults, then an optional
// "deckard.kdl" file in root, then environment variable overrides (highest
// precedence, matching spec.md §6's recognized-environment contract).
func Load(root string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cfg := Default(absRoot)

	kdlPath := filepath.Join(absRoot, "deckard.kdl")
	if _, statErr := os.Stat(kdlPath); statErr == nil {
		if err := loadKDLInto(cfg, kdlPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", kdlPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
