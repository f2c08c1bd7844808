// Package server wires all spiderlog components and creates the MCP server
// instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts, resources and the reminder worker.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/HendryAvila/spiderlog/internal/attachments"
	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/config"
	"github.com/HendryAvila/spiderlog/internal/metrics"
	"github.com/HendryAvila/spiderlog/internal/prompts"
	"github.com/HendryAvila/spiderlog/internal/reminder"
	"github.com/HendryAvila/spiderlog/internal/resources"
	"github.com/HendryAvila/spiderlog/internal/spidertools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// notifyTimeout bounds one reminder delivery.
const notifyTimeout = 30 * time.Second

// App holds the shared dependencies of every spiderlog entry point.
type App struct {
	Config   config.Config
	Store    *collection.Store
	Blobs    attachments.Store
	Roster   *collection.Roster
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Open creates the collection store, the document store and the metrics
// registry described by cfg. The caller must Close the App.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := collection.New(collection.Config{
		DataDir:      cfg.DataDir,
		MaxDocuments: cfg.MaxDocuments,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}

	attCfg := cfg.Attachments
	if attCfg.Driver == "" || attCfg.Driver == attachments.DriverFilesystem {
		if attCfg.Root == "" {
			attCfg.Root = filepath.Join(cfg.DataDir, "documents")
		}
	}
	blobs, err := attachments.Open(ctx, attCfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	logger.Info("collection opened",
		"module", "server",
		"data_dir", cfg.DataDir,
		"documents", blobs.Driver(),
	)

	return &App{
		Config:   cfg,
		Store:    store,
		Blobs:    blobs,
		Roster:   collection.NewRoster(store),
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
	}, nil
}

// Close releases the collection database.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Reminder builds the feeding reminder worker. Without notification URLs
// reminders are written to the log.
func (a *App) Reminder() (*reminder.Worker, error) {
	var notifier reminder.Notifier = reminder.NewLogNotifier(a.Logger)
	if len(a.Config.NotifyURLs) > 0 {
		n, err := reminder.NewShoutrrrNotifier(a.Config.NotifyURLs, notifyTimeout)
		if err != nil {
			return nil, err
		}
		notifier = n
	}
	return reminder.New(a.Roster, reminder.Options{
		Interval:  a.Config.ReminderInterval,
		Notifier:  notifier,
		Refresher: a.Store,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	}), nil
}

// New creates the MCP server with all tools, prompts and resources
// registered.
func New(app *App) (*server.MCPServer, error) {
	if app == nil || app.Store == nil {
		return nil, errors.New("server: app is not open")
	}

	s := server.NewMCPServer(
		"spiderlog",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	s.AddTools(tools(app)...)

	// --- Register prompts ---

	feedingRound := prompts.NewFeedingRoundPrompt()
	s.AddPrompt(feedingRound.Definition(), feedingRound.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(app.Roster, app.Store)
	s.AddResource(resourceHandler.OverviewResource(), resourceHandler.HandleOverview)
	s.AddResource(resourceHandler.SpeciesResource(), resourceHandler.HandleSpecies)

	return s, nil
}

// tools returns every MCP tool bound to app's dependencies.
func tools(app *App) []server.ServerTool {
	st, blobs, m, log := app.Store, app.Blobs, app.Metrics, app.Logger

	type tool interface {
		Definition() mcp.Tool
		Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}
	all := []tool{
		// --- Spiders ---
		spidertools.NewAddTool(st, m),
		spidertools.NewUpdateTool(st, m),
		spidertools.NewGetTool(st),
		spidertools.NewListTool(st),
		spidertools.NewDeleteTool(st, blobs, log),
		spidertools.NewFavouriteTool(st),

		// --- History ---
		spidertools.NewFeedTool(st, m),
		spidertools.NewMoltTool(st, m),

		// --- Overview ---
		spidertools.NewOverviewTool(app.Roster, m),
		spidertools.NewStatsTool(st),

		// --- Species catalogue ---
		spidertools.NewSpeciesListTool(st),
		spidertools.NewSpeciesAddTool(st),
		spidertools.NewSpeciesDeleteTool(st),

		// --- Documents ---
		spidertools.NewAttachTool(st, blobs, m, log),
		spidertools.NewDetachTool(st, blobs, log),
	}

	out := make([]server.ServerTool, 0, len(all))
	for _, t := range all {
		out = append(out, server.ServerTool{Tool: t.Definition(), Handler: t.Handle})
	}
	return out
}

// serverInstructions returns the system instructions that tell the AI
// how to use spiderlog effectively.
func serverInstructions() string {
	return `You have access to spiderlog, a keeper's log for a spider collection.

## WHAT IT TRACKS

Each spider has a name, optional species, sex, age, a feeding frequency,
a feeding history, a molting history, up to a fixed number of documents
and a favourite flag.

Feeding status is always computed from the last feeding date and the
feeding frequency:
- HUNGRY: the next feeding date has passed
- FEED_TODAY: the next feeding date is today
- NOT_HUNGRY: the next feeding date is in the future
A spider without a last feeding date or without a frequency has no status.

Frequencies: few_times_week (3 days), once_week (7), once_two_weeks (14),
once_month (30), rarely (60).

## DATES

Pass dates as yyyy-MM-dd or dd-MM-yyyy. Tool output uses dd-MM-yyyy.

Recording a feeding or molt adds it to the history. An older date is a
backfill: it is stored but never moves the last feeding or last molt date
backwards. Recording a date that is already in the history changes nothing.

## TYPICAL FLOWS

- "Who needs food?" -> spider_overview
- "I fed Rosie" -> spider_list with query='Rosie', then spider_feed
- "Rosie molted last Tuesday" -> spider_molt with the date
- New spider -> species_list to find the species, then spider_add
- Care sheet or photo -> document_attach with a uri, or a local path to copy
  it into the document store

## RULES

- Never guess a spider id: look it up with spider_list first
- spider_delete removes the spider with its histories and documents and
  cannot be undone; confirm with the user before calling it
- When document_attach is refused because of the limit, tell the user and
  offer document_remove`
}
