package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// jsonResponse marshals data as the tool's sole content item, matching
// spec.md §4.9's `{content: [...]}` success shape.
func jsonResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal tool response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResponse renders err as spec.md §4.9's structured
// `{error:{code,message,hint?}, isError:true}` shape. A *deckerrors.Error
// carries its own code/hint; any other error is reported as INVALID_ARGS.
// That covers argument-decoding failures, and also any untyped error a
// storage call passes up, such as a failed write inside a batch.
//
// Per the MCP SDK's own contract (quoted in the teacher's response.go):
// tool errors belong inside the result object with IsError set, not as a
// protocol-level error, so the calling model can see the failure and
// self-correct instead of the transport just dropping the call.
func errorResponse(op string, err error) (*mcp.CallToolResult, error) {
	code := deckerrors.CodeInvalidArgs
	message := err.Error()
	hint := ""

	var de *deckerrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
		hint = de.Hint
	}

	errBody := map[string]any{"code": code, "message": message}
	if hint != "" {
		errBody["hint"] = hint
	}

	resp, marshalErr := jsonResponse(map[string]any{"error": errBody, "operation": op})
	if marshalErr != nil {
		return nil, marshalErr
	}
	resp.IsError = true
	return resp, nil
}
