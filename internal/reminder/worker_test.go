package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/logging"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu        sync.Mutex
	badge     collection.Badge
	reloadErr error
	reloads   int
}

func (f *fakeSource) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.reloadErr
}

func (f *fakeSource) Overview(time.Time) collection.Badge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.badge
}

func (f *fakeSource) set(b collection.Badge) {
	f.mu.Lock()
	f.badge = b
	f.mu.Unlock()
}

func (f *fakeSource) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) RefreshCachedStatus(context.Context) (int, error) {
	c.calls++
	return 2, c.err
}

func hungryBadge(ids ...string) collection.Badge {
	b := collection.Badge{}
	for _, id := range ids {
		b.Hungry++
		b.Due = append(b.Due, collection.Spider{ID: id, Name: "Spider " + id, Status: feeding.Hungry, LastFed: "2024-01-01"})
	}
	return b
}

func newTestWorker(t *testing.T, src Source, n Notifier) (*Worker, *metrics.Metrics) {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	w := New(src, Options{Notifier: n, Metrics: m, Logger: logging.Discard(), Interval: time.Minute})
	return w, m
}

func TestRunOnce_NotifiesOnlyWhenDueSetChanges(t *testing.T) {
	src := &fakeSource{badge: hungryBadge("1")}
	n := &recordingNotifier{}
	w, m := newTestWorker(t, src, n)
	ctx := context.Background()

	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, res.Notified)

	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, res.Notified, "same due set must not notify twice")

	src.set(hungryBadge("1", "2"))
	res, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, res.Notified)

	require.Len(t, n.sent(), 2)
	assert.Equal(t, "2 spiders need feeding", n.sent()[1].Title)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Spiders.WithLabelValues("hungry")))
}

func TestRunOnce_NothingDue(t *testing.T) {
	src := &fakeSource{badge: collection.Badge{NotHungry: 3}}
	n := &recordingNotifier{}
	w, _ := newTestWorker(t, src, n)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Empty(t, n.sent())
}

func TestRunOnce_TimesPassWithWorkerClock(t *testing.T) {
	w, m := newTestWorker(t, &fakeSource{}, &recordingNotifier{})
	fixed := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	const want = `
# HELP spiderlog_reminder_run_duration_seconds Time taken by one reminder pass
# TYPE spiderlog_reminder_run_duration_seconds histogram
spiderlog_reminder_run_duration_seconds_bucket{le="0.001"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="0.005"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="0.01"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="0.05"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="0.1"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="0.5"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="1"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="5"} 1
spiderlog_reminder_run_duration_seconds_bucket{le="+Inf"} 1
spiderlog_reminder_run_duration_seconds_sum 0
spiderlog_reminder_run_duration_seconds_count 1
`
	assert.NoError(t, testutil.CollectAndCompare(m.ReminderRunTime, strings.NewReader(want),
		"spiderlog_reminder_run_duration_seconds"))
}

func TestRunOnce_RenotifiesAfterDueSetClears(t *testing.T) {
	src := &fakeSource{badge: hungryBadge("1")}
	n := &recordingNotifier{}
	w, _ := newTestWorker(t, src, n)
	ctx := context.Background()

	_, err := w.RunOnce(ctx)
	require.NoError(t, err)
	src.set(collection.Badge{NotHungry: 1})
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)
	src.set(hungryBadge("1"))
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	assert.Len(t, n.sent(), 2)
}

func TestRunOnce_FailedNotificationRetries(t *testing.T) {
	src := &fakeSource{badge: hungryBadge("1")}
	n := &recordingNotifier{err: errors.New("ntfy down")}
	w, m := newTestWorker(t, src, n)
	ctx := context.Background()

	_, err := w.RunOnce(ctx)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultFailed)))

	n.mu.Lock()
	n.err = nil
	n.mu.Unlock()
	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, res.Notified)
}

func TestRunOnce_RefreshesCachedStatus(t *testing.T) {
	src := &fakeSource{}
	ref := &countingRefresher{}
	w := New(src, Options{Notifier: &recordingNotifier{}, Refresher: ref, Logger: logging.Discard()})

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ref.calls)
	assert.Equal(t, 2, res.Refreshed)

	ref.err = collection.ErrNotInitialized
	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, collection.ErrNotInitialized)
}

func TestRun_ToleratesUninitializedStoreAndStops(t *testing.T) {
	src := &fakeSource{reloadErr: collection.ErrNotInitialized}
	w, _ := newTestWorker(t, src, &recordingNotifier{})
	w.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return src.reloadCount() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WithRealRoster(t *testing.T) {
	store, err := collection.New(collection.Config{DataDir: t.TempDir(), Logger: logging.Discard()})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.AddSpider(ctx, collection.NewSpider{
		Name: "Rosie", LastFed: "2020-01-01", FeedingFrequency: feeding.OnceWeek,
	})
	require.NoError(t, err)

	n := &recordingNotifier{}
	w := New(collection.NewRoster(store), Options{Notifier: n, Refresher: store, Logger: logging.Discard()})
	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Badge.Hungry)
	require.Len(t, n.sent(), 1)
	assert.Equal(t, "1 spider needs feeding", n.sent()[0].Title)
	assert.Contains(t, n.sent()[0].Body, "Rosie: hungry, last fed 01-01-2020")
}

func TestCompose(t *testing.T) {
	b := collection.Badge{
		Hungry:    1,
		FeedToday: 1,
		Due: []collection.Spider{
			{Name: "Rosie", SpeciesName: "Grammostola rosea", Status: feeding.Hungry, LastFed: "2024-01-01"},
			{Name: "Blue", Status: feeding.FeedToday},
		},
	}
	msg := Compose(b)
	assert.Equal(t, "2 spiders need feeding", msg.Title)
	assert.Equal(t, "- Rosie (Grammostola rosea): hungry, last fed 01-01-2024\n- Blue: feed today", msg.Body)
}

func TestShoutrrrNotifier(t *testing.T) {
	_, err := NewShoutrrrNotifier(nil, 0)
	assert.Error(t, err)

	_, err = NewShoutrrrNotifier([]string{"nosuchservice://x"}, 0)
	assert.Error(t, err)

	n, err := NewShoutrrrNotifier([]string{"logger://"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "shoutrrr", n.Name())
	assert.NoError(t, n.Notify(context.Background(), Message{Title: "t", Body: "b"}))
}
