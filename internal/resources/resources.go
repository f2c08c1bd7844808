// Package resources implements MCP resource handlers for the spider
// collection.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (spiderlog://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/collection"
)

const (
	overviewURI = "spiderlog://roster/overview"
	speciesURI  = "spiderlog://species"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Handler manages spiderlog resource endpoints.
type Handler struct {
	roster *collection.Roster
	store  *collection.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(roster *collection.Roster, store *collection.Store) *Handler {
	return &Handler{roster: roster, store: store}
}

// OverviewResource returns the MCP resource definition for the feeding overview.
func (h *Handler) OverviewResource() mcp.Resource {
	return mcp.NewResource(
		overviewURI,
		"Feeding overview",
		mcp.WithResourceDescription("Hungry, due today and fed counts with the spiders that need food"),
		mcp.WithMIMEType("application/json"),
	)
}

// overview is the JSON document served at overviewURI.
type overview struct {
	Date     string           `json:"date"`
	LoadedAt time.Time        `json:"loaded_at"`
	Badge    collection.Badge `json:"badge"`
}

// HandleOverview reloads the roster and returns the overview as JSON.
func (h *Handler) HandleOverview(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if err := h.roster.Reload(ctx); err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	now := timeNow()
	return jsonResource(req.Params.URI, overview{
		Date:     now.Format("2006-01-02"),
		LoadedAt: h.roster.LoadedAt(),
		Badge:    h.roster.Overview(now),
	})
}

// SpeciesResource returns the MCP resource definition for the species catalogue.
func (h *Handler) SpeciesResource() mcp.Resource {
	return mcp.NewResource(
		speciesURI,
		"Species catalogue",
		mcp.WithResourceDescription("All known species with their ids"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSpecies returns the species catalogue as JSON.
func (h *Handler) HandleSpecies(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := h.store.ListSpecies(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, list)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
