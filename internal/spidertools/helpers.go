// Package spidertools provides the MCP tool handlers for the spider
// collection.
//
// Each tool follows the same pattern:
//   - A struct with its dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() validates arguments, calls the store and returns a result
//
// Failures are reported as tool errors, never as Go errors, so the client
// sees the message. Dates are accepted as yyyy-MM-dd or dd-MM-yyyy and
// normalized here; the store only sees the canonical layout.
package spidertools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
)

// toolLogger scopes logger to this package, falling back to the default
// logger when nil.
func toolLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("module", "spidertools")
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// hasArg reports whether key was supplied at all.
func hasArg(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

// stringsArg accepts a JSON array of strings or a single comma-separated
// string.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	var raw []string
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = v
	case string:
		raw = strings.Split(v, ",")
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dateArg normalizes an optional date argument. Empty stays empty.
func dateArg(req mcp.CallToolRequest, key string) (string, error) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", nil
	}
	d, err := feeding.Normalize(v)
	if err != nil {
		return "", fmt.Errorf("'%s': %v", key, err)
	}
	return d, nil
}

// speciesArg resolves "species" (a name) or "species_id" to an id. The
// boolean is false when neither was given.
func speciesArg(ctx context.Context, store *collection.Store, req mcp.CallToolRequest) (*int64, bool, error) {
	if hasArg(req, "species_id") {
		id := int64(intArg(req, "species_id", 0))
		if id <= 0 {
			return nil, true, fmt.Errorf("'species_id' must be a positive number")
		}
		return &id, true, nil
	}
	name := strings.TrimSpace(req.GetString("species", ""))
	if name == "" {
		return nil, false, nil
	}
	sp, err := store.SpeciesByName(ctx, name)
	if err != nil {
		return nil, true, err
	}
	return &sp.ID, true, nil
}

// errorResult turns a store error into a tool error with a readable cause.
func errorResult(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, collection.ErrNotInitialized):
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s: the collection is not open", action))
	case errors.Is(err, collection.ErrNotFound), errors.Is(err, collection.ErrInvalid), errors.Is(err, collection.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
	case errors.Is(err, collection.ErrStorage):
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s: storage error, nothing was saved (%v)", action, err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
	}
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
