// Package tools implements component I: the named-tool registry of
// spec.md §4.9, dispatched through modelcontextprotocol/go-sdk's
// mcp.Server. Grounded on the teacher's internal/mcp package (tool
// registration via s.server.AddTool, JSON response helpers, manual
// argument decoding to avoid "unknown field" errors).
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ArgMap is a tool call's decoded arguments: an ordered key list (the
// order the caller's JSON object used) plus a value map, with explicit
// typed getters and defaults. This generalizes the teacher's
// SearchParams.UnmarshalJSON "known fields + preserved-but-ignored
// unknown fields" pattern from one hand-written struct to every tool,
// per SPEC_FULL.md §4.9's "(NEW) Dynamic tool arguments" design note.
type ArgMap struct {
	keys   []string
	values map[string]any
}

// ParseArgMap decodes a tool call's raw JSON arguments (an object, or
// empty/null for a no-arg tool) into an ArgMap, recording key order as
// encountered in the source so RegisterAll's analytics middleware can log
// "what the caller actually sent" rather than a randomized map order.
func ParseArgMap(raw json.RawMessage) (ArgMap, error) {
	am := ArgMap{values: map[string]any{}}
	if len(raw) == 0 || string(raw) == "null" {
		return am, nil
	}

	if err := json.Unmarshal(raw, &am.values); err != nil {
		return am, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	// json.Unmarshal into map[string]any loses source order; a token scan
	// over the same bytes recovers the order the caller's object used.
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // opening '{'
		return am, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return am, err
		}
		key, _ := keyTok.(string)
		am.keys = append(am.keys, key)

		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return am, err
		}
	}
	return am, nil
}

// Keys returns the argument names in source order (best-effort; falls
// back to map order on decode ambiguity, see ParseArgMap).
func (a ArgMap) Keys() []string { return a.keys }

// Has reports whether key was present in the caller's arguments.
func (a ArgMap) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// GetString returns the string value at key, or def when absent or of
// the wrong type.
func (a ArgMap) GetString(key, def string) string {
	if v, ok := a.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetInt returns the integer value at key, or def when absent or of the
// wrong type. JSON numbers decode as float64; truncation matches the
// teacher's own param_utils.go coercion for numeric MCP arguments.
func (a ArgMap) GetInt(key string, def int) int {
	if v, ok := a.values[key]; ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return def
}

// GetBool returns the boolean value at key, or def when absent or of
// the wrong type.
func (a ArgMap) GetBool(key string, def bool) bool {
	if v, ok := a.values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetFloat returns the float value at key, or def when absent or of the
// wrong type.
func (a ArgMap) GetFloat(key string, def float64) float64 {
	if v, ok := a.values[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

// GetStringSlice returns the string array at key, or nil when absent or
// of the wrong type. Non-string elements are skipped rather than failing
// the whole call.
func (a ArgMap) GetStringSlice(key string) []string {
	v, ok := a.values[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Raw exposes the underlying decoded value map for redaction/analytics.
func (a ArgMap) Raw() map[string]any { return a.values }
