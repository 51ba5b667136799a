package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/deckard/internal/config"
	"github.com/standardbeagle/deckard/internal/fts"
	"github.com/standardbeagle/deckard/internal/indexer"
	"github.com/standardbeagle/deckard/internal/storage"
	"github.com/standardbeagle/deckard/internal/types"
)

// Registry wires every named tool of spec.md §4.9 against the shared
// storage kernel, FTS engine, indexer and call-graph service, and
// dispatches them through an mcp.Server, mirroring the teacher's
// Server.registerTools layout (one AddTool call per tool, grouped by
// concern across this package's handler files).
type Registry struct {
	store *storage.Kernel
	engine fts.Engine
	idx    *indexer.Indexer
	cfg    *config.Config
	root   types.Root

	chain func(tool string, h Handler) Handler
}

// New builds a Registry. policy may be nil to allow every call.
func New(cfg *config.Config, store *storage.Kernel, engine fts.Engine, idx *indexer.Indexer, root types.Root, policy PolicyFunc, analytics AnalyticsSink) *Registry {
	return &Registry{
		store:  store,
		engine: engine,
		idx:    idx,
		cfg:    cfg,
		root:   root,
		chain:  Chain(PolicyMiddleware(policy), AnalyticsMiddleware(analytics)),
	}
}

// toolDef binds one tool's schema to its Handler, so RegisterAll can
// apply the middleware chain and the common arg-decode step uniformly.
type toolDef struct {
	tool    *mcp.Tool
	handler Handler
}

// RegisterAll registers every tool named in spec.md §4.9 against server.
func (r *Registry) RegisterAll(server *mcp.Server) {
	for _, def := range r.definitions() {
		wrapped := r.chain(def.tool.Name, def.handler)
		server.AddTool(def.tool, r.dispatch(def.tool.Name, wrapped))
	}
}

// dispatch adapts a middleware-wrapped Handler to the mcp.Server's
// callback signature, decoding req.Params.Arguments into an ArgMap once
// so every handler downstream works against typed getters instead of
// raw JSON, per SPEC_FULL.md §4.9's dynamic-argument design note.
func (r *Registry) dispatch(tool string, h Handler) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArgMap(req.Params.Arguments)
		if err != nil {
			return errorResponse(tool, err)
		}
		return h(ctx, args)
	}
}

func (r *Registry) definitions() []toolDef {
	return []toolDef{
		{tool: &mcp.Tool{Name: "search", Description: "Hybrid symbol/content search across indexed roots.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"query":        {Type: "string", Description: "Search query"},
				"repo":         {Type: "string", Description: "Restrict to one logical repo"},
				"limit":        {Type: "integer", Description: "Max results"},
				"offset":       {Type: "integer", Description: "Pagination offset"},
				"file_types":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Filter by file extension"},
				"path_pattern": {Type: "string", Description: "Glob/regex path filter"},
				"use_regex":    {Type: "boolean", Description: "Treat query as a regex"},
				"recency_boost": {Type: "boolean", Description: "Favor recently modified files"},
			}, Required: []string{"query"}}}, handler: r.handleSearch},

		{tool: &mcp.Tool{Name: "search_symbols", Description: "Search indexed symbols by name.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"name":  {Type: "string", Description: "Symbol name (substring match)"},
				"limit": {Type: "integer", Description: "Max results"},
			}, Required: []string{"name"}}}, handler: r.handleSearchSymbols},

		{tool: &mcp.Tool{Name: "read_file", Description: "Read one indexed file's full content.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"path": {Type: "string", Description: "Root-relative path"},
			}, Required: []string{"path"}}}, handler: r.handleReadFile},

		{tool: &mcp.Tool{Name: "list_files", Description: "List indexed files under a path prefix.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"prefix": {Type: "string", Description: "Root-relative path prefix"},
			}}}, handler: r.handleListFiles},

		{tool: &mcp.Tool{Name: "list_symbols", Description: "List the symbols declared in one file.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"path": {Type: "string", Description: "Root-relative path"},
			}, Required: []string{"path"}}}, handler: r.handleListSymbols},

		{tool: &mcp.Tool{Name: "get_callers", Description: "List the symbols that call a given symbol.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"symbol_id": {Type: "string", Description: "Symbol id from search/list_symbols"},
				"limit":     {Type: "integer", Description: "Max callers"},
			}, Required: []string{"symbol_id"}}}, handler: r.handleGetCallers},

		{tool: &mcp.Tool{Name: "get_implementations", Description: "List symbols implementing/extending a given symbol.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"symbol_id": {Type: "string", Description: "Symbol id from search/list_symbols"},
				"limit":     {Type: "integer", Description: "Max implementations"},
			}, Required: []string{"symbol_id"}}}, handler: r.handleGetImplementations},

		{tool: &mcp.Tool{Name: "call_graph", Description: "Render a bidirectional call graph around a symbol.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"symbol":        {Type: "string", Description: "Symbol name to resolve"},
				"symbol_id":     {Type: "string", Description: "Exact symbol id (skips name resolution)"},
				"path":          {Type: "string", Description: "Narrow name resolution to one file"},
				"depth":         {Type: "integer", Description: "Traversal depth"},
				"exclude_paths": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Glob path exclusions"},
				"include_paths": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Glob path inclusions"},
			}}}, handler: r.handleCallGraph},

		{tool: &mcp.Tool{Name: "status", Description: "Report index size, engine health and writer backlog.",
			InputSchema: &jsonschema.Schema{Type: "object"}}, handler: r.handleStatus},

		{tool: &mcp.Tool{Name: "doctor", Description: "Diagnose index health and suggest remediation.",
			InputSchema: &jsonschema.Schema{Type: "object"}}, handler: r.handleDoctor},

		{tool: &mcp.Tool{Name: "grep_and_read", Description: "Content search that returns matching files with their full text.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"pattern": {Type: "string", Description: "Substring or regex pattern"},
				"limit":   {Type: "integer", Description: "Max files"},
			}, Required: []string{"pattern"}}}, handler: r.handleGrepAndRead},

		{tool: &mcp.Tool{Name: "save_snippet", Description: "Save or version a tagged code snippet.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"id":      {Type: "string", Description: "Existing snippet id to append a version to"},
				"path":    {Type: "string", Description: "Root-relative path the snippet is taken from"},
				"label":   {Type: "string", Description: "Short label"},
				"content": {Type: "string", Description: "Snippet body"},
				"tags":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			}, Required: []string{"content"}}}, handler: r.handleSaveSnippet},

		{tool: &mcp.Tool{Name: "get_snippet", Description: "Fetch a saved snippet by id.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Snippet id"},
			}, Required: []string{"id"}}}, handler: r.handleGetSnippet},

		{tool: &mcp.Tool{Name: "archive_context", Description: "Archive a free-form note scoped to a path.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"scope":      {Type: "string", Description: "file, symbol, or repo"},
				"scope_path": {Type: "string", Description: "Scoped path/identifier"},
				"note":       {Type: "string", Description: "Note body"},
				"tags":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			}, Required: []string{"scope_path", "note"}}}, handler: r.handleArchiveContext},

		{tool: &mcp.Tool{Name: "get_context", Description: "List archived context notes for a path.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"scope_path": {Type: "string", Description: "Scoped path/identifier"},
			}, Required: []string{"scope_path"}}}, handler: r.handleGetContext},

		{tool: &mcp.Tool{Name: "dry_run_diff", Description: "Preview how a hypothetical file edit would reindex, without writing it.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"path":    {Type: "string", Description: "Root-relative path"},
				"content": {Type: "string", Description: "Proposed new content"},
			}, Required: []string{"path", "content"}}}, handler: r.handleDryRunDiff},

		{tool: &mcp.Tool{Name: "index_file", Description: "Force one file to be (re)indexed immediately.",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
				"path": {Type: "string", Description: "Root-relative path"},
			}, Required: []string{"path"}}}, handler: r.handleIndexFile},

		{tool: &mcp.Tool{Name: "rescan", Description: "Run a full ScanOnce pass over the root.",
			InputSchema: &jsonschema.Schema{Type: "object"}}, handler: r.handleRescan},

		{tool: &mcp.Tool{Name: "scan_once", Description: "Alias of rescan, matching spec.md's tool name.",
			InputSchema: &jsonschema.Schema{Type: "object"}}, handler: r.handleRescan},
	}
}
