package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/spiderlog/internal/attachments"
	"github.com/HendryAvila/spiderlog/internal/config"
	"github.com/HendryAvila/spiderlog/internal/logging"
)

func openTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Attachments = attachments.Config{Driver: attachments.DriverMemory}
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestOpen_DefaultsDocumentRootUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Attachments = attachments.Config{}

	app, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, attachments.DriverFilesystem, app.Blobs.Driver())
	assert.True(t, strings.HasPrefix(app.Blobs.URI("x"), "file://"+dir), app.Blobs.URI("x"))
}

func TestOpen_BadDriver(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Attachments.Driver = "ftp"

	_, err := Open(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestTools_AllRegisteredOnce(t *testing.T) {
	app := openTestApp(t, nil)

	want := []string{
		"spider_add", "spider_update", "spider_get", "spider_list", "spider_delete", "spider_favourite",
		"spider_feed", "spider_molt", "spider_overview", "spider_stats",
		"species_list", "species_add", "species_delete",
		"document_attach", "document_remove",
	}
	var got []string
	seen := map[string]bool{}
	for _, st := range tools(app) {
		assert.False(t, seen[st.Tool.Name], "duplicate tool %s", st.Tool.Name)
		seen[st.Tool.Name] = true
		assert.NotNil(t, st.Handler, st.Tool.Name)
		got = append(got, st.Tool.Name)
	}
	assert.ElementsMatch(t, want, got)
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	s, err := New(openTestApp(t, nil))
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestReminder(t *testing.T) {
	w, err := openTestApp(t, nil).Reminder()
	require.NoError(t, err)
	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Badge.Count())

	_, err = openTestApp(t, func(c *config.Config) { c.NotifyURLs = []string{"logger://"} }).Reminder()
	assert.NoError(t, err)

	_, err = openTestApp(t, func(c *config.Config) { c.NotifyURLs = []string{"nope://x"} }).Reminder()
	assert.Error(t, err)
}

func TestInstructionsNameEveryTool(t *testing.T) {
	text := serverInstructions()
	for _, name := range []string{"spider_overview", "spider_feed", "spider_molt", "document_attach", "spider_delete"} {
		assert.Contains(t, text, name)
	}
}
