// Package ipc wires a tool registry to the local IPC surface spec.md §1
// treats as an external collaborator (interfaces only): the JSON-RPC-like
// framing itself is modelcontextprotocol/go-sdk's concern, not ours. This
// package stays deliberately thin — it builds the mcp.Server, registers
// every tool, and runs it over a transport, mirroring the teacher's
// internal/mcp/server.go Start method.
package ipc

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/deckard/internal/debuglog"
	"github.com/standardbeagle/deckard/internal/tools"
)

// Server is the daemon's MCP-facing process, one per running instance.
type Server struct {
	mcpServer *mcp.Server
}

// NewServer builds an mcp.Server carrying every tool in registry, under
// the given implementation name/version (surfaced to clients via
// initialize), matching the teacher's mcp.NewServer(&mcp.Implementation{...}, nil)
// call in server.go.
func NewServer(registry *tools.Registry, name, version string) *Server {
	s := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	registry.RegisterAll(s)
	return &Server{mcpServer: s}
}

// ServeStdio runs the server over stdin/stdout until ctx is canceled or
// the transport closes, matching spec.md §1's "stdio" IPC mode. debuglog
// is switched to suppressed mode first, since writing trace output to
// stdout would corrupt the framed JSON-RPC stream, exactly as the
// teacher's debug.SetMCPMode(true) does before mcpServer.Start.
func (s *Server) ServeStdio(ctx context.Context) error {
	debuglog.SetStdioMode(true)
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// ServeTCP would run the server over a local TCP socket, spec.md §1's
// other named IPC mode. No transport in the grounded dependency pack
// confirms a TCP-capable mcp.Transport implementation (only
// mcp.StdioTransport, used server-side, and mcp.CommandTransport, used
// client-side to launch a subprocess, ever appear in the teacher's MCP
// package); hand-rolling JSON-RPC framing over a raw net.Conn would
// reintroduce exactly the framing-layer work spec.md §1 scopes out as an
// external collaborator. Left unimplemented rather than guessed at; see
// DESIGN.md.
func (s *Server) ServeTCP(ctx context.Context, addr string) error {
	return fmt.Errorf("ipc: tcp transport not available in this build (addr=%s); use stdio", addr)
}
