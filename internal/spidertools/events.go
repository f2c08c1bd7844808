package spidertools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

// eventKind describes one history-backed event.
type eventKind struct {
	tool, noun, metric string
	record             func(s *collection.Store, ctx context.Context, id, date string) (*collection.UpdateResult, error)
	added              func(r *collection.UpdateResult) bool
	current            func(sp *collection.Spider) string
}

var (
	feedEvent = eventKind{
		tool:    "spider_feed",
		noun:    "feeding",
		metric:  metrics.EventFeeding,
		record:  (*collection.Store).RecordFeeding,
		added:   func(r *collection.UpdateResult) bool { return r.FeedingAdded },
		current: func(sp *collection.Spider) string { return sp.LastFed },
	}
	moltEvent = eventKind{
		tool:    "spider_molt",
		noun:    "molt",
		metric:  metrics.EventMolt,
		record:  (*collection.Store).RecordMolt,
		added:   func(r *collection.UpdateResult) bool { return r.MoltAdded },
		current: func(sp *collection.Spider) string { return sp.LastMolt },
	}
)

// EventTool handles spider_feed and spider_molt.
type EventTool struct {
	store   *collection.Store
	metrics *metrics.Metrics
	kind    eventKind
}

// NewFeedTool creates the spider_feed tool.
func NewFeedTool(store *collection.Store, m *metrics.Metrics) *EventTool {
	return &EventTool{store: store, metrics: m, kind: feedEvent}
}

// NewMoltTool creates the spider_molt tool.
func NewMoltTool(store *collection.Store, m *metrics.Metrics) *EventTool {
	return &EventTool{store: store, metrics: m, kind: moltEvent}
}

// Definition returns the MCP tool definition.
func (t *EventTool) Definition() mcp.Tool {
	return mcp.NewTool(t.kind.tool,
		mcp.WithDescription(fmt.Sprintf("Record a %s. Defaults to today. Recording a date that is already "+
			"in the history changes nothing; an older date is added to the history without moving "+
			"the last %s date backwards.", t.kind.noun, t.kind.noun)),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spider id")),
		mcp.WithString("date", mcp.Description("Date of the "+t.kind.noun+", yyyy-MM-dd or dd-MM-yyyy (default: today)")),
	)
}

// Handle processes the tool call.
func (t *EventTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	date, err := dateArg(req, "date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if date == "" {
		date = feeding.Today()
	}

	res, err := t.kind.record(t.store, ctx, id, date)
	if err != nil {
		return errorResult("record "+t.kind.noun, err), nil
	}
	sp := res.Spider

	var b strings.Builder
	if t.kind.added(res) {
		t.metrics.RecordEvent(t.kind.metric)
		fmt.Fprintf(&b, "Recorded %s for %s on %s.", t.kind.noun, sp.Name, feeding.ToUI(date))
	} else {
		fmt.Fprintf(&b, "%s on %s was already recorded for %s; nothing changed.",
			capitalize(t.kind.noun), feeding.ToUI(date), sp.Name)
	}
	if cur := t.kind.current(sp); cur != date {
		fmt.Fprintf(&b, "\nLast %s stays %s.", t.kind.noun, feeding.ToUI(cur))
	}
	if sp.Status != "" {
		fmt.Fprintf(&b, "\nStatus: %s", sp.Status)
	}
	if sp.NextFeedingDate != "" {
		fmt.Fprintf(&b, "\nNext feeding: %s", feeding.ToUI(sp.NextFeedingDate))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
