package spidertools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// OverviewTool handles the spider_overview MCP tool.
type OverviewTool struct {
	roster  *collection.Roster
	metrics *metrics.Metrics
}

// NewOverviewTool creates an OverviewTool.
func NewOverviewTool(roster *collection.Roster, m *metrics.Metrics) *OverviewTool {
	return &OverviewTool{roster: roster, metrics: m}
}

// Definition returns the MCP tool definition for spider_overview.
func (t *OverviewTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_overview",
		mcp.WithDescription("Summarize the collection's feeding state: how many spiders are hungry, "+
			"due today or fed, and which ones need food. Call this at the start of a feeding round."),
	)
}

// Handle processes the spider_overview tool call.
func (t *OverviewTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.roster.Reload(ctx); err != nil {
		return errorResult("load collection", err), nil
	}
	b := t.roster.Overview(timeNow())
	t.metrics.ObserveBadge(b)
	return mcp.NewToolResultText(FormatBadge(b)), nil
}

// FormatBadge renders an overview as markdown.
func FormatBadge(b collection.Badge) string {
	var sb strings.Builder
	sb.WriteString("## Feeding overview\n\n")
	fmt.Fprintf(&sb, "- Hungry: %d\n", b.Hungry)
	fmt.Fprintf(&sb, "- Feed today: %d\n", b.FeedToday)
	fmt.Fprintf(&sb, "- Not hungry: %d\n", b.NotHungry)
	if b.Unknown > 0 {
		fmt.Fprintf(&sb, "- No feeding data: %d\n", b.Unknown)
	}
	if len(b.Due) == 0 {
		sb.WriteString("\nNo spider needs feeding.")
		return sb.String()
	}
	sb.WriteString("\n### Needs feeding\n\n")
	for _, sp := range b.Due {
		fmt.Fprintf(&sb, "- **%s** (id %s) %s", sp.Name, sp.ID, sp.Status)
		if sp.LastFed != "" {
			fmt.Fprintf(&sb, ", last fed %s", feeding.ToUI(sp.LastFed))
		}
		if sp.FeedingFrequency != "" {
			fmt.Fprintf(&sb, ", %s", sp.FeedingFrequency.Label())
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// StatsTool handles the spider_stats MCP tool.
type StatsTool struct {
	store *collection.Store
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(store *collection.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for spider_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("spider_stats",
		mcp.WithDescription("Counts of spiders, favourites, species, recorded feedings, molts and documents."),
	)
}

// Handle processes the spider_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.store.Stats(ctx)
	if err != nil {
		return errorResult("load stats", err), nil
	}
	var sb strings.Builder
	sb.WriteString("## Collection stats\n\n")
	fmt.Fprintf(&sb, "- Spiders: %d (%d favourites)\n", st.Spiders, st.Favourites)
	fmt.Fprintf(&sb, "- Species in catalogue: %d\n", st.Species)
	fmt.Fprintf(&sb, "- Feedings recorded: %d\n", st.Feedings)
	fmt.Fprintf(&sb, "- Molts recorded: %d\n", st.Molts)
	fmt.Fprintf(&sb, "- Documents: %d", st.Documents)
	return mcp.NewToolResultText(sb.String()), nil
}
