package spidertools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/attachments"
	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

const frequencyHelp = "Feeding frequency: few_times_week (3 days), once_week (7), once_two_weeks (14), once_month (30), rarely (60)"

// ─── AddTool ────────────────────────────────────────────────────────────────

// AddTool handles the spider_add MCP tool.
type AddTool struct {
	store   *collection.Store
	metrics *metrics.Metrics
}

// NewAddTool creates an AddTool.
func NewAddTool(store *collection.Store, m *metrics.Metrics) *AddTool {
	return &AddTool{store: store, metrics: m}
}

// Definition returns the MCP tool definition for spider_add.
func (t *AddTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_add",
		mcp.WithDescription("Add a spider to the collection. Only the name is required. "+
			"A last fed or last molt date also starts that history."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the spider")),
		mcp.WithString("age", mcp.Description("Free-text age, e.g. 'L4' or '3 years'")),
		mcp.WithString("species", mcp.Description("Species name from species_list (case-insensitive)")),
		mcp.WithNumber("species_id", mcp.Description("Species id; takes precedence over 'species'")),
		mcp.WithString("individual_type", mcp.Description("male, female or unknown (default)")),
		mcp.WithString("last_fed", mcp.Description("Last feeding date, yyyy-MM-dd or dd-MM-yyyy")),
		mcp.WithString("feeding_frequency", mcp.Description(frequencyHelp)),
		mcp.WithString("last_molt", mcp.Description("Last molt date, yyyy-MM-dd or dd-MM-yyyy")),
		mcp.WithString("image_uri", mcp.Description("Reference to a photo")),
		mcp.WithBoolean("favourite", mcp.Description("Mark as favourite (default: false)")),
		mcp.WithArray("documents", mcp.WithStringItems(), mcp.Description("Document URIs to attach. URIs beyond the per-spider limit are listed in documents_rejected")),
	)
}

// Handle processes the spider_add tool call.
func (t *AddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	lastFed, err := dateArg(req, "last_fed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lastMolt, err := dateArg(req, "last_molt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var freq feeding.Frequency
	if raw := req.GetString("feeding_frequency", ""); raw != "" {
		if freq, err = feeding.ParseFrequency(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	speciesID, _, err := speciesArg(ctx, t.store, req)
	if err != nil {
		return errorResult("resolve species", err), nil
	}

	docs := stringsArg(req, "documents")
	id, err := t.store.AddSpider(ctx, collection.NewSpider{
		Name:             name,
		Age:              req.GetString("age", ""),
		SpeciesID:        speciesID,
		IndividualType:   collection.IndividualType(req.GetString("individual_type", "")),
		LastFed:          lastFed,
		FeedingFrequency: freq,
		LastMolt:         lastMolt,
		ImageURI:         req.GetString("image_uri", ""),
		IsFavourite:      boolArg(req, "favourite", false),
		Documents:        docs,
	})
	if err != nil {
		return errorResult("add spider", err), nil
	}
	if lastFed != "" {
		t.metrics.RecordEvent(metrics.EventFeeding)
	}
	if lastMolt != "" {
		t.metrics.RecordEvent(metrics.EventMolt)
	}

	sp, err := t.store.GetSpider(ctx, id)
	if err != nil {
		return errorResult("load new spider", err), nil
	}
	return jsonResult(addResult{Spider: sp, DocumentsRejected: rejectedDocuments(docs, sp.Documents)})
}

// addResult is the spider_add response: the new spider plus any document
// URIs the per-spider cap refused.
type addResult struct {
	*collection.Spider
	DocumentsRejected []string `json:"documents_rejected,omitempty"`
}

// rejectedDocuments returns the requested URIs that did not end up
// attached.
func rejectedDocuments(requested []string, attached []collection.Document) []string {
	have := make(map[string]bool, len(attached))
	for _, d := range attached {
		have[d.URI] = true
	}
	var out []string
	for _, uri := range requested {
		if !have[uri] {
			out = append(out, uri)
		}
	}
	return out
}

// ─── UpdateTool ─────────────────────────────────────────────────────────────

// UpdateTool handles the spider_update MCP tool.
type UpdateTool struct {
	store   *collection.Store
	metrics *metrics.Metrics
}

// NewUpdateTool creates an UpdateTool.
func NewUpdateTool(store *collection.Store, m *metrics.Metrics) *UpdateTool {
	return &UpdateTool{store: store, metrics: m}
}

// Definition returns the MCP tool definition for spider_update.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_update",
		mcp.WithDescription("Update a spider. Only the fields you pass change. "+
			"A last_fed or last_molt date is added to the history; an older date is kept as a backfill "+
			"and never moves the current value backwards."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spider id")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("age", mcp.Description("Free-text age")),
		mcp.WithString("species", mcp.Description("Species name")),
		mcp.WithNumber("species_id", mcp.Description("Species id")),
		mcp.WithBoolean("clear_species", mcp.Description("Remove the species")),
		mcp.WithString("individual_type", mcp.Description("male, female or unknown")),
		mcp.WithString("last_fed", mcp.Description("Feeding date, yyyy-MM-dd or dd-MM-yyyy")),
		mcp.WithString("feeding_frequency", mcp.Description(frequencyHelp)),
		mcp.WithString("last_molt", mcp.Description("Molt date, yyyy-MM-dd or dd-MM-yyyy")),
		mcp.WithString("image_uri", mcp.Description("Reference to a photo")),
		mcp.WithBoolean("favourite", mcp.Description("Favourite flag")),
		mcp.WithArray("add_documents", mcp.WithStringItems(), mcp.Description("Document URIs to attach")),
	)
}

// Handle processes the spider_update tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	var u collection.SpiderUpdate
	str := func(key string) *string {
		if !hasArg(req, key) {
			return nil
		}
		v := req.GetString(key, "")
		return &v
	}
	u.Name = str("name")
	u.Age = str("age")
	u.ImageURI = str("image_uri")
	if v := str("individual_type"); v != nil {
		typ := collection.IndividualType(*v)
		u.IndividualType = &typ
	}
	if v := str("feeding_frequency"); v != nil {
		f := feeding.Frequency("")
		if strings.TrimSpace(*v) != "" {
			parsed, err := feeding.ParseFrequency(*v)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			f = parsed
		}
		u.FeedingFrequency = &f
	}
	if hasArg(req, "favourite") {
		fav := boolArg(req, "favourite", false)
		u.IsFavourite = &fav
	}
	for _, key := range []string{"last_fed", "last_molt"} {
		d, err := dateArg(req, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if d == "" {
			continue
		}
		if key == "last_fed" {
			u.LastFed = &d
		} else {
			u.LastMolt = &d
		}
	}
	u.ClearSpecies = boolArg(req, "clear_species", false)
	if !u.ClearSpecies {
		speciesID, given, err := speciesArg(ctx, t.store, req)
		if err != nil {
			return errorResult("resolve species", err), nil
		}
		if given {
			u.SpeciesID = speciesID
		}
	}
	u.AddDocuments = stringsArg(req, "add_documents")

	res, err := t.store.UpdateSpider(ctx, id, u)
	if err != nil {
		return errorResult("update spider", err), nil
	}
	if res.FeedingAdded {
		t.metrics.RecordEvent(metrics.EventFeeding)
	}
	if res.MoltAdded {
		t.metrics.RecordEvent(metrics.EventMolt)
	}
	return jsonResult(res)
}

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the spider_get MCP tool.
type GetTool struct {
	store *collection.Store
}

// NewGetTool creates a GetTool.
func NewGetTool(store *collection.Store) *GetTool {
	return &GetTool{store: store}
}

// Definition returns the MCP tool definition for spider_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_get",
		mcp.WithDescription("Get one spider with its feeding status, next feeding date, "+
			"feeding and molting history (newest first) and documents."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spider id")),
	)
}

// Handle processes the spider_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	sp, err := t.store.GetSpider(ctx, id)
	if err != nil {
		return errorResult("get spider", err), nil
	}
	return jsonResult(sp)
}

// ─── ListTool ───────────────────────────────────────────────────────────────

// ListTool handles the spider_list MCP tool.
type ListTool struct {
	store *collection.Store
}

// NewListTool creates a ListTool.
func NewListTool(store *collection.Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for spider_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_list",
		mcp.WithDescription("List spiders with their current feeding status. Supports search, filters and sorting."),
		mcp.WithString("query", mcp.Description("Substring of the name (case-insensitive)")),
		mcp.WithString("species", mcp.Description("Only this species (name)")),
		mcp.WithNumber("species_id", mcp.Description("Only this species (id)")),
		mcp.WithBoolean("favourites_only", mcp.Description("Only favourites")),
		mcp.WithString("status", mcp.Description("Only this status: HUNGRY, FEED_TODAY or NOT_HUNGRY")),
		mcp.WithString("sort_by", mcp.Description("name (default), last_fed, next_feeding, status or species")),
		mcp.WithBoolean("descending", mcp.Description("Reverse the order")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default: all)")),
	)
}

// Handle processes the spider_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sortBy, err := collection.ParseSortKey(req.GetString("sort_by", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var status feeding.Status
	if raw := strings.TrimSpace(req.GetString("status", "")); raw != "" {
		status = feeding.Status(strings.ToUpper(raw))
		switch status {
		case feeding.Hungry, feeding.FeedToday, feeding.NotHungry:
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", raw)), nil
		}
	}
	speciesID, _, err := speciesArg(ctx, t.store, req)
	if err != nil {
		return errorResult("resolve species", err), nil
	}

	list, err := t.store.ListSpiders(ctx, collection.ListOptions{
		Query:          req.GetString("query", ""),
		SpeciesID:      speciesID,
		FavouritesOnly: boolArg(req, "favourites_only", false),
		Status:         status,
		SortBy:         sortBy,
		Descending:     boolArg(req, "descending", false),
		Limit:          intArg(req, "limit", 0),
	})
	if err != nil {
		return errorResult("list spiders", err), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No spiders found."), nil
	}
	return jsonResult(list)
}

// ─── DeleteTool ─────────────────────────────────────────────────────────────

// DeleteTool handles the spider_delete MCP tool.
type DeleteTool struct {
	store *collection.Store
	blobs attachments.Store
	log   *slog.Logger
}

// NewDeleteTool creates a DeleteTool. blobs may be nil.
func NewDeleteTool(store *collection.Store, blobs attachments.Store, logger *slog.Logger) *DeleteTool {
	return &DeleteTool{store: store, blobs: blobs, log: toolLogger(logger)}
}

// Definition returns the MCP tool definition for spider_delete.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_delete",
		mcp.WithDescription("Delete a spider together with its feeding history, molting history and documents. "+
			"Cannot be undone."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spider id")),
	)
}

// Handle processes the spider_delete tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	docs, err := t.store.Documents(ctx, id)
	if err != nil {
		return errorResult("delete spider", err), nil
	}
	if err := t.store.DeleteSpider(ctx, id); err != nil {
		return errorResult("delete spider", err), nil
	}

	removed := 0
	for _, d := range docs {
		if ok := deleteBlob(ctx, t.log, t.blobs, d.URI); ok {
			removed++
		}
	}
	msg := fmt.Sprintf("Spider %s deleted.", id)
	if removed > 0 {
		msg += fmt.Sprintf(" Removed %d stored file(s).", removed)
	}
	return mcp.NewToolResultText(msg), nil
}

// ─── FavouriteTool ──────────────────────────────────────────────────────────

// FavouriteTool handles the spider_favourite MCP tool.
type FavouriteTool struct {
	store *collection.Store
}

// NewFavouriteTool creates a FavouriteTool.
func NewFavouriteTool(store *collection.Store) *FavouriteTool {
	return &FavouriteTool{store: store}
}

// Definition returns the MCP tool definition for spider_favourite.
func (t *FavouriteTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_favourite",
		mcp.WithDescription("Mark or unmark a spider as favourite."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spider id")),
		mcp.WithBoolean("favourite", mcp.Description("true to mark (default), false to unmark")),
	)
}

// Handle processes the spider_favourite tool call.
func (t *FavouriteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	fav := boolArg(req, "favourite", true)
	if err := t.store.SetFavourite(ctx, id, fav); err != nil {
		return errorResult("set favourite", err), nil
	}
	if fav {
		return mcp.NewToolResultText(fmt.Sprintf("Spider %s marked as favourite.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Spider %s is no longer a favourite.", id)), nil
}
