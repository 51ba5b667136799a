package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/config"
	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/indexer"
	"github.com/standardbeagle/deckard/internal/parserpool"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

func testRegistry(t *testing.T, policy PolicyFunc) (*Registry, *storage.Kernel) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Storage.DBPath = filepath.Join(dir, "index.db")

	store, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pool := parserpool.New(2)
	t.Cleanup(func() { pool.Close() })

	ix := indexer.New(cfg, store, pool)
	engine := fts.New("sqlite", store.GetReadConnection())

	root := types.Root{RootID: types.NewRootID(dir), AbsPath: dir}
	require.NoError(t, store.UpsertRoot(root))

	var events []AnalyticsEvent
	r := New(cfg, store, engine, ix, root, policy, func(ev AnalyticsEvent) { events = append(events, ev) })
	_ = events
	return r, store
}

func callTool(t *testing.T, r *Registry, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	var def *toolDef
	for _, d := range r.definitions() {
		if d.tool.Name == tool {
			d := d
			def = &d
			break
		}
	}
	require.NotNil(t, def, "tool %s not registered", tool)

	handler := r.chain(tool, def.handler)
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: tool, Arguments: raw}}
	return r.dispatch(tool, handler)(context.Background(), req)
}

func decodeText(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &out))
	return out
}

func TestArgMapOrderAndGetters(t *testing.T) {
	am, err := ParseArgMap(json.RawMessage(`{"b":1,"a":"x","c":true,"tags":["x","y"]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "c", "tags"}, am.Keys())
	require.Equal(t, "x", am.GetString("a", ""))
	require.Equal(t, 1, am.GetInt("b", 0))
	require.True(t, am.GetBool("c", false))
	require.Equal(t, []string{"x", "y"}, am.GetStringSlice("tags"))
	require.False(t, am.Has("missing"))
	require.Equal(t, "def", am.GetString("missing", "def"))
}

func TestArgMapEmptyArguments(t *testing.T) {
	am, err := ParseArgMap(nil)
	require.NoError(t, err)
	require.Empty(t, am.Keys())

	am, err = ParseArgMap(json.RawMessage(`null`))
	require.NoError(t, err)
	require.Empty(t, am.Keys())
}

func TestReadFileAndListFilesRoundTrip(t *testing.T) {
	r, store := testRegistry(t, nil)
	path := types.NewFileID(r.root.RootID, "main.go")
	require.NoError(t, store.UpsertFiles([]types.File{{
		Path: path, RootID: r.root.RootID, RelPath: "main.go",
		Mtime: time.Now().UTC(), Size: 5, Content: []byte("hello"),
		LastSeenTS: time.Now().UTC(), ParseStatus: types.ParseStatusOK, ASTStatus: types.ParseStatusOK,
	}}))

	result, err := callTool(t, r, "read_file", map[string]any{"path": "main.go"})
	require.NoError(t, err)
	body := decodeText(t, result)
	require.Equal(t, "hello", body["content"])

	result, err = callTool(t, r, "list_files", map[string]any{"prefix": ""})
	require.NoError(t, err)
	body = decodeText(t, result)
	files, _ := body["files"].([]any)
	require.Len(t, files, 1)
}

func TestReadFileMissingPathIsInvalidArgs(t *testing.T) {
	r, _ := testRegistry(t, nil)
	result, err := callTool(t, r, "read_file", map[string]any{})
	require.NoError(t, err)
	require.True(t, result.IsError)
	body := decodeText(t, result)
	errBody, _ := body["error"].(map[string]any)
	require.Equal(t, "INVALID_ARGS", errBody["code"])
}

func TestSaveAndGetSnippet(t *testing.T) {
	r, _ := testRegistry(t, nil)
	result, err := callTool(t, r, "save_snippet", map[string]any{"content": "func f() {}", "label": "f"})
	require.NoError(t, err)
	saved := decodeText(t, result)
	id, _ := saved["id"].(string)
	require.NotEmpty(t, id)

	result, err = callTool(t, r, "get_snippet", map[string]any{"id": id})
	require.NoError(t, err)
	got := decodeText(t, result)
	require.Equal(t, "func f() {}", got["content"])
}

func TestArchiveAndGetContext(t *testing.T) {
	r, _ := testRegistry(t, nil)
	_, err := callTool(t, r, "archive_context", map[string]any{"scope_path": "main.go", "note": "careful here"})
	require.NoError(t, err)

	result, err := callTool(t, r, "get_context", map[string]any{"scope_path": "main.go"})
	require.NoError(t, err)
	body := decodeText(t, result)
	notes, _ := body["notes"].([]any)
	require.Len(t, notes, 1)
}

func TestStatusAndDoctorReportEmptyIndex(t *testing.T) {
	r, _ := testRegistry(t, nil)

	result, err := callTool(t, r, "status", map[string]any{})
	require.NoError(t, err)
	body := decodeText(t, result)
	require.Equal(t, float64(0), body["files_indexed"])

	result, err = callTool(t, r, "doctor", map[string]any{})
	require.NoError(t, err)
	body = decodeText(t, result)
	require.Equal(t, false, body["healthy"])
	issues, _ := body["issues"].([]any)
	require.NotEmpty(t, issues)
}

func TestDryRunDiffDoesNotTouchStorage(t *testing.T) {
	r, store := testRegistry(t, nil)
	result, err := callTool(t, r, "dry_run_diff", map[string]any{
		"path":    "preview.go",
		"content": "package main\n\nfunc Preview() {}\n",
	})
	require.NoError(t, err)
	body := decodeText(t, result)
	require.Equal(t, false, body["existed"])
	require.Greater(t, body["proposed_symbol_count"], float64(0))

	_, err = store.ReadFile(types.NewFileID(r.root.RootID, "preview.go"))
	require.Error(t, err, "dry_run_diff must not write through to storage")
}

func TestIndexFileAndRescan(t *testing.T) {
	r, store := testRegistry(t, nil)
	abs := filepath.Join(r.root.AbsPath, "tool.go")
	require.NoError(t, writeFile(abs, "package main\n\nfunc Tool() {}\n"))

	result, err := callTool(t, r, "index_file", map[string]any{"path": "tool.go"})
	require.NoError(t, err)
	body := decodeText(t, result)
	require.Equal(t, true, body["indexed"])

	got, err := store.ReadFile(types.NewFileID(r.root.RootID, "tool.go"))
	require.NoError(t, err)
	require.Equal(t, types.ParseStatusOK, got.ParseStatus)

	require.NoError(t, writeFile(filepath.Join(r.root.AbsPath, "other.go"), "package main\n"))
	result, err = callTool(t, r, "rescan", map[string]any{})
	require.NoError(t, err)
	_ = decodeText(t, result)
}

func TestPolicyMiddlewareRejectsDisallowedTool(t *testing.T) {
	r, _ := testRegistry(t, func(tool string, args ArgMap) error {
		if tool == "read_file" {
			return deckerrors.New(deckerrors.CodeInvalidArgs, "read_file disabled")
		}
		return nil
	})

	result, err := callTool(t, r, "read_file", map[string]any{"path": "main.go"})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestPolicyMiddlewareRedactsResponseText(t *testing.T) {
	r, store := testRegistry(t, nil)
	path := types.NewFileID(r.root.RootID, "secret.go")
	require.NoError(t, store.UpsertFiles([]types.File{{
		Path: path, RootID: r.root.RootID, RelPath: "secret.go",
		Mtime: time.Now().UTC(), Size: 20, Content: []byte("token=abcdef123456"),
		LastSeenTS: time.Now().UTC(), ParseStatus: types.ParseStatusOK, ASTStatus: types.ParseStatusOK,
	}}))

	result, err := callTool(t, r, "read_file", map[string]any{"path": "secret.go"})
	require.NoError(t, err)
	body := decodeText(t, result)
	require.NotContains(t, body["content"], "abcdef123456")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
