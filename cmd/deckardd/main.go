// Command deckardd is the deckard daemon: it indexes one workspace root
// and serves the tool registry over the MCP stdio transport, following the
// teacher's cmd/lci entrypoint's load-config/build-indexer/serve shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/debuglog"
	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/indexer"
	"github.com/standardbeagle/deckard/internal/ipc"
	"github.com/standardbeagle/deckard/internal/parserpool"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/tools"
	"github.com/standardbeagle/deckard/internal/types"
	"github.com/standardbeagle/deckard/internal/watcher"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "deckardd",
		Usage:   "workspace-local code intelligence daemon",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "workspace root", Value: "."},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "index the root and serve tools over MCP stdio",
				Action: serveCommand,
			},
			{
				Name:   "scan",
				Usage:  "run one full indexing pass and exit",
				Action: scanCommand,
			},
		},
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "deckardd:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	return config.Load(root)
}

func openKernel(cfg *config.Config) (*storage.Kernel, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return storage.Open(cfg.Storage)
}

func scanCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := openKernel(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pool := parserpool.New(cfg.Performance.ParallelWorkers)
	defer pool.Close()

	ix := indexer.New(cfg, store, pool)
	root := types.Root{RootID: types.NewRootID(cfg.Project.Root), AbsPath: cfg.Project.Root}
	if err := store.UpsertRoot(root); err != nil {
		return err
	}

	stats, err := ix.ScanOnce(context.Background(), root)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	fmt.Printf("scanned=%d changed=%d unchanged=%d failed=%d deleted=%d\n",
		stats.Scanned, stats.Changed, stats.Unchanged, stats.Failed, stats.Deleted)
	return nil
}

// serveCommand wires every component (storage, FTS engine, parser pool,
// indexer, watcher, tool registry) together and runs the MCP server over
// stdio until a shutdown signal arrives, mirroring the teacher's
// cmd/lci/main_server.go serverCommand + mcpCommand shape.
func serveCommand(c *cli.Context) error {
	debuglog.SetStdioMode(true)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := openKernel(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := fts.New(cfg.Engine.Mode, store.GetReadConnection())
	if cfg.Engine.AutoInstall {
		installCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = engine.Install(installCtx)
		cancel()
	}

	pool := parserpool.New(cfg.Performance.ParallelWorkers)
	defer pool.Close()

	ix := indexer.New(cfg, store, pool)
	root := types.Root{RootID: types.NewRootID(cfg.Project.Root), AbsPath: cfg.Project.Root}
	if err := store.UpsertRoot(root); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		start := time.Now()
		stats, err := ix.ScanOnce(ctx, root)
		if err != nil {
			debuglog.Printf("initial scan failed: %v", err)
			return
		}
		debuglog.Printf("initial scan complete in %s: scanned=%d changed=%d failed=%d",
			time.Since(start), stats.Scanned, stats.Changed, stats.Failed)
	}()

	w, err := watcher.New(cfg.Project.Root, watcher.Options{
		MinDelay:              time.Duration(cfg.Watch.MinDelayMs) * time.Millisecond,
		MaxDelay:              time.Duration(cfg.Watch.MaxDelayMs) * time.Millisecond,
		TokenBucketCap:        cfg.Watch.TokenBucketCap,
		TokenFillPerSec:       cfg.Watch.TokenFillPerSec,
		BackpressureThreshold: cfg.Index.BackpressureThreshold,
	}, func(ev types.FsEvent) {
		if err := ix.HandleEvent(ctx, root, ev); err != nil {
			debuglog.Printf("watch event %s failed: %v", ev.Path, err)
		}
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	ix.SetThrottle(w.Throttle)

	if cfg.Watch.Enabled {
		if err := w.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	registry := tools.New(cfg, store, engine, ix, root, nil, nil)
	server := ipc.NewServer(registry, "deckard", version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ServeStdio(ctx) }()

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		cancel()
		return err
	}
	return nil
}
