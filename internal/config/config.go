// Package config loads spiderlog settings from a TOML file.
//
// Every field is optional; a missing file yields the defaults. Command-line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/HendryAvila/spiderlog/internal/attachments"
	"github.com/HendryAvila/spiderlog/internal/collection"
)

const (
	defaultDataDir          = "~/.spiderlog"
	defaultConfigName       = "config.toml"
	defaultReminderInterval = 6 * time.Hour
)

// Config is the resolved configuration.
type Config struct {
	// Path is the file the settings came from, whether or not it existed.
	Path             string
	DataDir          string
	LogLevel         slog.Level
	MaxDocuments     int
	ReminderInterval time.Duration
	// NotifyURLs are shoutrrr service URLs for feeding reminders. Empty
	// means reminders are only logged.
	NotifyURLs  []string
	MetricsAddr string
	Attachments attachments.Config
}

type rawConfig struct {
	DataDir      string `toml:"data_dir"`
	LogLevel     string `toml:"log_level"`
	MaxDocuments int    `toml:"max_documents"`
	Reminder     struct {
		Interval string   `toml:"interval"`
		URLs     []string `toml:"urls"`
	} `toml:"reminder"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
	Attachments struct {
		Driver string `toml:"driver"`
		Root   string `toml:"root"`
		S3     struct {
			Bucket          string `toml:"bucket"`
			Region          string `toml:"region"`
			Endpoint        string `toml:"endpoint"`
			PathStyle       bool   `toml:"path_style"`
			AccessKeyID     string `toml:"access_key_id"`
			SecretAccessKey string `toml:"secret_access_key"`
		} `toml:"s3"`
	} `toml:"attachments"`
}

// DefaultPath is ~/.spiderlog/config.toml.
func DefaultPath() string {
	return filepath.Join(mustExpand(defaultDataDir), defaultConfigName)
}

// Default returns the configuration used when no file exists.
func Default() Config {
	dataDir := mustExpand(defaultDataDir)
	return Config{
		Path:             filepath.Join(dataDir, defaultConfigName),
		DataDir:          dataDir,
		LogLevel:         slog.LevelInfo,
		MaxDocuments:     collection.DefaultMaxDocuments,
		ReminderInterval: defaultReminderInterval,
		Attachments: attachments.Config{
			Driver: attachments.DriverFilesystem,
			Root:   filepath.Join(dataDir, "documents"),
		},
	}
}

// Load reads path (DefaultPath when empty) and fills in defaults for
// anything unset. A missing file is not an error.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	return apply(cfg, raw)
}

func apply(cfg Config, raw rawConfig) (Config, error) {
	if dir := strings.TrimSpace(raw.DataDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return Config{}, fmt.Errorf("data_dir: %w", err)
		}
		cfg.DataDir = expanded
		cfg.Attachments.Root = filepath.Join(expanded, "documents")
	}

	if lvl := strings.TrimSpace(raw.LogLevel); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return Config{}, fmt.Errorf("log_level: %w", err)
		}
	}

	if raw.MaxDocuments < 0 {
		return Config{}, fmt.Errorf("max_documents must not be negative, got %d", raw.MaxDocuments)
	}
	if raw.MaxDocuments > 0 {
		cfg.MaxDocuments = raw.MaxDocuments
	}

	if iv := strings.TrimSpace(raw.Reminder.Interval); iv != "" {
		d, err := time.ParseDuration(iv)
		if err != nil {
			return Config{}, fmt.Errorf("reminder.interval: %w", err)
		}
		if d < time.Minute {
			return Config{}, fmt.Errorf("reminder.interval must be at least 1m, got %s", d)
		}
		cfg.ReminderInterval = d
	}
	for _, u := range raw.Reminder.URLs {
		if u = strings.TrimSpace(u); u != "" {
			cfg.NotifyURLs = append(cfg.NotifyURLs, u)
		}
	}

	cfg.MetricsAddr = strings.TrimSpace(raw.Metrics.Addr)

	driver, err := attachments.ParseDriver(raw.Attachments.Driver)
	if err != nil {
		return Config{}, fmt.Errorf("attachments.driver: %w", err)
	}
	cfg.Attachments.Driver = driver
	if root := strings.TrimSpace(raw.Attachments.Root); root != "" {
		expanded, err := expandPath(root)
		if err != nil {
			return Config{}, fmt.Errorf("attachments.root: %w", err)
		}
		cfg.Attachments.Root = expanded
	}
	s3 := raw.Attachments.S3
	cfg.Attachments.S3 = attachments.S3Config{
		Bucket:          strings.TrimSpace(s3.Bucket),
		Region:          strings.TrimSpace(s3.Region),
		Endpoint:        strings.TrimSpace(s3.Endpoint),
		PathStyle:       s3.PathStyle,
		AccessKeyID:     strings.TrimSpace(s3.AccessKeyID),
		SecretAccessKey: s3.SecretAccessKey,
	}
	if driver == attachments.DriverS3 && cfg.Attachments.S3.Bucket == "" {
		return Config{}, errors.New("attachments.s3.bucket is required for the s3 driver")
	}
	return cfg, nil
}

// WithDataDir moves the data directory. A document root that still sits
// at its default location under the old directory moves with it.
func (c Config) WithDataDir(dir string) Config {
	if dir == "" || dir == c.DataDir {
		return c
	}
	if c.Attachments.Root == filepath.Join(c.DataDir, "documents") {
		c.Attachments.Root = filepath.Join(dir, "documents")
	}
	c.DataDir = dir
	return c
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
