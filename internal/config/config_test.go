package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/spiderlog/internal/attachments"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".spiderlog", "config.toml"), cfg.Path)
	assert.Equal(t, filepath.Join(home, ".spiderlog"), cfg.DataDir)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxDocuments)
	assert.Equal(t, 6*time.Hour, cfg.ReminderInterval)
	assert.Empty(t, cfg.NotifyURLs)
	assert.Equal(t, attachments.DriverFilesystem, cfg.Attachments.Driver)
	assert.Equal(t, filepath.Join(home, ".spiderlog", "documents"), cfg.Attachments.Root)
}

func TestLoad_Overrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
data_dir = "~/tarantulas"
log_level = "debug"
max_documents = 8

[reminder]
interval = "30m"
urls = ["  ntfy://ntfy.sh/spiders  ", ""]

[metrics]
addr = "127.0.0.1:9464"

[attachments]
driver = "s3"

[attachments.s3]
bucket = "care-sheets"
region = "eu-west-1"
endpoint = "http://localhost:9000"
path_style = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Join(home, "tarantulas"), cfg.DataDir)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 8, cfg.MaxDocuments)
	assert.Equal(t, 30*time.Minute, cfg.ReminderInterval)
	assert.Equal(t, []string{"ntfy://ntfy.sh/spiders"}, cfg.NotifyURLs)
	assert.Equal(t, "127.0.0.1:9464", cfg.MetricsAddr)
	assert.Equal(t, attachments.DriverS3, cfg.Attachments.Driver)
	assert.Equal(t, "care-sheets", cfg.Attachments.S3.Bucket)
	assert.True(t, cfg.Attachments.S3.PathStyle)
	assert.Equal(t, filepath.Join(home, "tarantulas", "documents"), cfg.Attachments.Root)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", `data_dir = `},
		{"bad level", `log_level = "loud"`},
		{"negative max documents", `max_documents = -1`},
		{"bad interval", "[reminder]\ninterval = \"soon\""},
		{"interval too short", "[reminder]\ninterval = \"5s\""},
		{"unknown driver", "[attachments]\ndriver = \"ftp\""},
		{"s3 without bucket", "[attachments]\ndriver = \"s3\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), got)

	got, err = expandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	_, err = expandPath("  ")
	assert.Error(t, err)
}

func TestWithDataDir(t *testing.T) {
	cfg := Default()
	moved := cfg.WithDataDir("/srv/spiders")
	assert.Equal(t, "/srv/spiders", moved.DataDir)
	assert.Equal(t, filepath.Join("/srv/spiders", "documents"), moved.Attachments.Root)

	cfg.Attachments.Root = "/mnt/docs"
	moved = cfg.WithDataDir("/srv/spiders")
	assert.Equal(t, "/mnt/docs", moved.Attachments.Root, "explicit root must stay")

	assert.Equal(t, cfg, cfg.WithDataDir(""))
}
