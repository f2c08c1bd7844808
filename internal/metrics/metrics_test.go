package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/spiderlog/internal/collection"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestObserveBadge(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveBadge(collection.Badge{Hungry: 2, FeedToday: 1, NotHungry: 5, Unknown: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Spiders.WithLabelValues("hungry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Spiders.WithLabelValues("feed_today")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Spiders.WithLabelValues("not_hungry")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Spiders.WithLabelValues("unknown")))

	m.ObserveBadge(collection.Badge{NotHungry: 1})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Spiders.WithLabelValues("hungry")))
}

func TestCounters(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordEvent(EventFeeding)
	m.RecordEvent(EventFeeding)
	m.RecordEvent(EventMolt)
	m.RecordNotification(ResultSent)
	m.RecordNotification(ResultFailed)
	m.ObserveReminderRun(20 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues(EventFeeding)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues(EventMolt)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultSent)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReminderRunTime))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBadge(collection.Badge{Hungry: 1})
		m.RecordEvent(EventFeeding)
		m.RecordNotification(ResultSent)
		m.ObserveReminderRun(time.Second)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordEvent(EventDocument)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `spiderlog_events_recorded_total{kind="document"} 1`))
}
