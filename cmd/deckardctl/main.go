// Command deckardctl is deckard's debug CLI: it opens an existing
// workspace's index through the storage kernel and only reads from it
// (status and search; it does not trigger scans), without going through
// the MCP surface, mirroring the teacher's cmd/lci status/search
// subcommands but against deckard's storage kernel directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/debuglog"
	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/search"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

func main() {
	if home, err := os.UserHomeDir(); err == nil {
		logDir := filepath.Join(home, ".local", "share", "deckard", "logs")
		if _, err := debuglog.InitLogFile(logDir); err != nil {
			fmt.Fprintf(os.Stderr, "deckardctl: warning: could not open log file: %v\n", err)
		}
	}

	app := &cli.App{
		Name:  "deckardctl",
		Usage: "inspect a deckard workspace index without starting the daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "workspace root", Value: "."},
		},
		Commands: []*cli.Command{
			{Name: "status", Usage: "print index size and engine health", Action: statusCommand},
			{
				Name:  "search",
				Usage: "run a search query against the index",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: searchCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "deckardctl:", err)
		os.Exit(1)
	}
}

func openReadOnly(c *cli.Context) (*storage.Kernel, *config.Config, types.RootID, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open index at %s (has it been scanned yet?): %w", cfg.Storage.DBPath, err)
	}
	return store, cfg, types.NewRootID(cfg.Project.Root), nil
}

func statusCommand(c *cli.Context) error {
	store, cfg, rootID, err := openReadOnly(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rootIDs := []types.RootID{rootID}

	fileCount, err := store.CountFiles(ctx, rootIDs)
	if err != nil {
		return err
	}
	symbolCount, err := store.CountSymbols(ctx, rootIDs)
	if err != nil {
		return err
	}
	dlqCount, err := store.CountFailedTasks()
	if err != nil {
		return err
	}
	engine := fts.New(cfg.Engine.Mode, store.GetReadConnection())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"root":            cfg.Project.Root,
		"files_indexed":   fileCount,
		"symbols_indexed": symbolCount,
		"dlq_pending":     dlqCount,
		"engine":          engine.Status(),
	})
}

func searchCommand(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("usage: deckardctl search <query>")
	}

	store, cfg, rootID, err := openReadOnly(c)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := fts.New(cfg.Engine.Mode, store.GetReadConnection())
	resp, err := search.Search(context.Background(), store, engine, search.Options{
		Query: query, Limit: c.Int("limit"),
		RootIDs: []string{rootID.String()}, AllowedRootIDs: []string{rootID.String()},
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
