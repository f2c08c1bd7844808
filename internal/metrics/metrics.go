// Package metrics provides Prometheus metrics for the spider collection.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HendryAvila/spiderlog/internal/collection"
)

// Event kinds for EventsRecorded.
const (
	EventFeeding  = "feeding"
	EventMolt     = "molt"
	EventDocument = "document"
)

// Notification results for Notifications.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds the collection metrics. All methods are safe on a nil
// receiver so callers without a registry can pass nil.
type Metrics struct {
	Spiders         *prometheus.GaugeVec   // Spiders by derived feeding status
	EventsRecorded  *prometheus.CounterVec // Feedings, molts and documents recorded
	Notifications   *prometheus.CounterVec // Reminder notifications by result
	ReminderRunTime prometheus.Histogram   // Duration of one reminder pass

	registry *prometheus.Registry
}

// New creates the metrics and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		Spiders: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spiderlog_spiders",
				Help: "Number of spiders by feeding status (hungry, feed_today, not_hungry, unknown)",
			},
			[]string{"status"},
		),
		EventsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spiderlog_events_recorded_total",
				Help: "Husbandry events recorded by kind (feeding, molt, document)",
			},
			[]string{"kind"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spiderlog_notifications_total",
				Help: "Feeding reminder notifications by result (sent, failed, skipped)",
			},
			[]string{"result"},
		),
		ReminderRunTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spiderlog_reminder_run_duration_seconds",
				Help:    "Time taken by one reminder pass",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
	}
	for _, c := range []prometheus.Collector{m.Spiders, m.EventsRecorded, m.Notifications, m.ReminderRunTime} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register spiderlog metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveBadge sets the status gauge from an overview.
func (m *Metrics) ObserveBadge(b collection.Badge) {
	if m == nil {
		return
	}
	m.Spiders.WithLabelValues("hungry").Set(float64(b.Hungry))
	m.Spiders.WithLabelValues("feed_today").Set(float64(b.FeedToday))
	m.Spiders.WithLabelValues("not_hungry").Set(float64(b.NotHungry))
	m.Spiders.WithLabelValues("unknown").Set(float64(b.Unknown))
}

// RecordEvent counts one recorded event of kind.
func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(kind).Inc()
}

// RecordNotification counts one reminder outcome.
func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// ObserveReminderRun records how long a reminder pass took.
func (m *Metrics) ObserveReminderRun(d time.Duration) {
	if m == nil {
		return
	}
	m.ReminderRunTime.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
