// Package reminder periodically checks which spiders need feeding and
// notifies the keeper when that set changes.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

// DefaultInterval is used when Options.Interval is zero.
const DefaultInterval = 6 * time.Hour

// Source is the snapshot the worker reads. *collection.Roster satisfies it.
type Source interface {
	Reload(ctx context.Context) error
	Overview(now time.Time) collection.Badge
}

// Refresher rewrites the cached status columns. *collection.Store
// satisfies it.
type Refresher interface {
	RefreshCachedStatus(ctx context.Context) (int, error)
}

// Options configures a Worker. Only Notifier is required.
type Options struct {
	Interval  time.Duration
	Notifier  Notifier
	Refresher Refresher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Result describes one pass.
type Result struct {
	Badge     collection.Badge
	Refreshed int
	// Notified is true when a reminder went out on this pass.
	Notified bool
}

// Worker runs reminder passes.
type Worker struct {
	src       Source
	refresher Refresher
	notifier  Notifier
	metrics   *metrics.Metrics
	interval  time.Duration
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	lastDue string
}

// New creates a worker reading from src.
func New(src Source, opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(logger)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Worker{
		src:       src,
		refresher: opts.Refresher,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		interval:  opts.Interval,
		log:       logger.With("module", "reminder"),
		now:       time.Now,
	}
}

// RunOnce reloads the snapshot, updates metrics and sends a reminder if
// the set of due spiders differs from the last one sent.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	start := w.now()
	defer func() { w.metrics.ObserveReminderRun(w.now().Sub(start)) }()

	var res Result
	if w.refresher != nil {
		n, err := w.refresher.RefreshCachedStatus(ctx)
		if err != nil {
			return res, fmt.Errorf("refresh cached status: %w", err)
		}
		res.Refreshed = n
	}
	if err := w.src.Reload(ctx); err != nil {
		return res, fmt.Errorf("reload roster: %w", err)
	}
	res.Badge = w.src.Overview(w.now())
	w.metrics.ObserveBadge(res.Badge)

	key := dueKey(res.Badge)
	w.mu.Lock()
	unchanged := key == w.lastDue
	w.mu.Unlock()
	if unchanged {
		if key != "" {
			w.metrics.RecordNotification(metrics.ResultSkipped)
		}
		return res, nil
	}
	if key == "" {
		w.setLastDue(key)
		return res, nil
	}

	if err := w.notifier.Notify(ctx, Compose(res.Badge)); err != nil {
		w.metrics.RecordNotification(metrics.ResultFailed)
		return res, fmt.Errorf("notify via %s: %w", w.notifier.Name(), err)
	}
	w.metrics.RecordNotification(metrics.ResultSent)
	w.setLastDue(key)
	res.Notified = true
	w.log.Info("feeding reminder sent", "notifier", w.notifier.Name(), "due", res.Badge.Count())
	return res, nil
}

// Run calls RunOnce immediately and then every interval until ctx is
// cancelled. Failed passes are logged and retried on the next tick; a
// store that is not open yet is expected during startup.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, collection.ErrNotInitialized) {
				w.log.Warn("collection not open yet, retrying next tick")
			} else if ctx.Err() == nil {
				w.log.Error("reminder pass failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Worker) setLastDue(key string) {
	w.mu.Lock()
	w.lastDue = key
	w.mu.Unlock()
}

// dueKey identifies the due set: which spiders and in which state.
func dueKey(b collection.Badge) string {
	parts := make([]string, 0, len(b.Due))
	for _, sp := range b.Due {
		parts = append(parts, sp.ID+":"+string(sp.Status)+":"+sp.LastFed)
	}
	return strings.Join(parts, ",")
}

// Compose renders the reminder for a badge.
func Compose(b collection.Badge) Message {
	title := fmt.Sprintf("%d spiders need feeding", b.Count())
	if b.Count() == 1 {
		title = "1 spider needs feeding"
	}
	var body strings.Builder
	for _, sp := range b.Due {
		body.WriteString("- ")
		body.WriteString(sp.Name)
		if sp.SpeciesName != "" {
			fmt.Fprintf(&body, " (%s)", sp.SpeciesName)
		}
		switch sp.Status {
		case feeding.Hungry:
			body.WriteString(": hungry")
		case feeding.FeedToday:
			body.WriteString(": feed today")
		}
		if sp.LastFed != "" {
			fmt.Fprintf(&body, ", last fed %s", feeding.ToUI(sp.LastFed))
		}
		body.WriteByte('\n')
	}
	return Message{Title: title, Body: strings.TrimRight(body.String(), "\n")}
}
