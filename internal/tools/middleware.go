package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
	"github.com/standardbeagle/deckard/internal/debuglog"
)

// Handler is one tool's implementation: decode args, do the work, render
// a response.
type Handler func(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error)

// Middleware wraps a Handler with cross-cutting behavior (policy
// enforcement, analytics), composing around the call rather than inside
// it, per spec.md §4.9's "policy (pre-call, post-call), analytics" chain.
type Middleware func(tool string, next Handler) Handler

// Chain applies middlewares in order so the first entry is outermost
// (runs first on the way in, last on the way out) — the conventional
// net/http-style middleware composition.
func Chain(middlewares ...Middleware) func(tool string, h Handler) Handler {
	return func(tool string, h Handler) Handler {
		wrapped := h
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](tool, wrapped)
		}
		return wrapped
	}
}

// PolicyFunc decides whether a call is allowed before it runs, and may
// inspect the result after it runs (e.g. to redact sensitive output).
type PolicyFunc func(tool string, args ArgMap) error

// PolicyMiddleware rejects disallowed calls before the handler runs with
// an INVALID_ARGS-shaped error response, and redacts known-sensitive
// strings out of successful responses on the way back, per spec.md §7's
// redaction rule applied to tool I/O.
func PolicyMiddleware(check PolicyFunc) Middleware {
	return func(tool string, next Handler) Handler {
		return func(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
			if check != nil {
				if err := check(tool, args); err != nil {
					return errorResponse(tool, err)
				}
			}
			result, err := next(ctx, args)
			if err != nil || result == nil {
				return result, err
			}
			for _, c := range result.Content {
				if tc, ok := c.(*mcp.TextContent); ok {
					tc.Text = deckerrors.Redact(tc.Text)
				}
			}
			return result, nil
		}
	}
}

// AnalyticsEvent is one completed tool call, handed to an AnalyticsSink.
type AnalyticsEvent struct {
	Tool     string
	Args     map[string]any
	Duration time.Duration
	IsError  bool
}

// AnalyticsSink receives a completed call's telemetry. The default sink
// used by AnalyticsMiddleware writes through debuglog, mirroring the
// teacher's diagnosticLogger trace lines.
type AnalyticsSink func(AnalyticsEvent)

// DebugLogSink is the default AnalyticsSink: one redacted trace line per
// call via internal/debuglog, suppressed automatically in stdio MCP mode.
func DebugLogSink(ev AnalyticsEvent) {
	debuglog.Printf("tool=%s duration=%s error=%v args=%v",
		ev.Tool, ev.Duration, ev.IsError, deckerrors.RedactMap(ev.Args))
}

// AnalyticsMiddleware times the call and reports it to sink once it
// completes, regardless of outcome.
func AnalyticsMiddleware(sink AnalyticsSink) Middleware {
	if sink == nil {
		sink = DebugLogSink
	}
	return func(tool string, next Handler) Handler {
		return func(ctx context.Context, args ArgMap) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, args)
			isError := err != nil || (result != nil && result.IsError)
			sink(AnalyticsEvent{Tool: tool, Args: args.Raw(), Duration: time.Since(start), IsError: isError})
			return result, err
		}
	}
}
