package spidertools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/collection"
)

// SpeciesListTool handles the species_list MCP tool.
type SpeciesListTool struct {
	store *collection.Store
}

// NewSpeciesListTool creates a SpeciesListTool.
func NewSpeciesListTool(store *collection.Store) *SpeciesListTool {
	return &SpeciesListTool{store: store}
}

// Definition returns the MCP tool definition for species_list.
func (t *SpeciesListTool) Definition() mcp.Tool {
	return mcp.NewTool("species_list",
		mcp.WithDescription("List the species catalogue (id and name), optionally filtered by a name substring."),
		mcp.WithString("query", mcp.Description("Substring of the species name (case-insensitive)")),
	)
}

// Handle processes the species_list tool call.
func (t *SpeciesListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := t.store.ListSpecies(ctx)
	if err != nil {
		return errorResult("list species", err), nil
	}
	if q := strings.ToLower(strings.TrimSpace(req.GetString("query", ""))); q != "" {
		filtered := list[:0]
		for _, sp := range list {
			if strings.Contains(strings.ToLower(sp.Name), q) {
				filtered = append(filtered, sp)
			}
		}
		list = filtered
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No species found."), nil
	}
	return jsonResult(list)
}

// SpeciesAddTool handles the species_add MCP tool.
type SpeciesAddTool struct {
	store *collection.Store
}

// NewSpeciesAddTool creates a SpeciesAddTool.
func NewSpeciesAddTool(store *collection.Store) *SpeciesAddTool {
	return &SpeciesAddTool{store: store}
}

// Definition returns the MCP tool definition for species_add.
func (t *SpeciesAddTool) Definition() mcp.Tool {
	return mcp.NewTool("species_add",
		mcp.WithDescription("Add a species to the catalogue."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Scientific name, e.g. 'Poecilotheria metallica'")),
	)
}

// Handle processes the species_add tool call.
func (t *SpeciesAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	sp, err := t.store.AddSpecies(ctx, name)
	if err != nil {
		return errorResult("add species", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Species %q added.\nID: %d", sp.Name, sp.ID)), nil
}

// SpeciesDeleteTool handles the species_delete MCP tool.
type SpeciesDeleteTool struct {
	store *collection.Store
}

// NewSpeciesDeleteTool creates a SpeciesDeleteTool.
func NewSpeciesDeleteTool(store *collection.Store) *SpeciesDeleteTool {
	return &SpeciesDeleteTool{store: store}
}

// Definition returns the MCP tool definition for species_delete.
func (t *SpeciesDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("species_delete",
		mcp.WithDescription("Remove a species from the catalogue. Spiders of that species are kept without a species."),
		mcp.WithNumber("species_id", mcp.Description("Species id")),
		mcp.WithString("species", mcp.Description("Species name, used when species_id is not given")),
	)
}

// Handle processes the species_delete tool call.
func (t *SpeciesDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, given, err := speciesArg(ctx, t.store, req)
	if err != nil {
		return errorResult("delete species", err), nil
	}
	if !given {
		return mcp.NewToolResultError("'species_id' or 'species' is required"), nil
	}
	if err := t.store.DeleteSpecies(ctx, *id); err != nil {
		return errorResult("delete species", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Species %d deleted.", *id)), nil
}
