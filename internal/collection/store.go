// Package collection is the persistent store for a spider collection.
//
// It keeps spiders, their species, feeding and molting history and attached
// documents in SQLite (WAL mode, foreign keys enforced). Every write that
// touches more than one statement runs in a single transaction. Feeding
// status and next feeding date are cached on the spider row for display
// but always recomputed on read.
package collection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// DefaultMaxDocuments is the per-spider document cap.
const DefaultMaxDocuments = 5

// Config holds store configuration.
type Config struct {
	DataDir         string
	MaxDocuments    int
	SpeciesCacheTTL time.Duration
	Logger          *slog.Logger
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:         filepath.Join(home, ".spiderlog"),
		MaxDocuments:    DefaultMaxDocuments,
		SpeciesCacheTTL: 10 * time.Minute,
	}
}

// Store is the collection database.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	cfg     Config
	hooks   storeHooks
	log     *slog.Logger
	species *cache.Cache
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) beginTxHook(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, db)
	}
	return db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates the data directory if needed, opens SQLite with WAL mode and
// foreign keys enabled, runs migrations and seeds the species list on
// first use.
func New(cfg Config) (*Store, error) {
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = DefaultMaxDocuments
	}
	if cfg.SpeciesCacheTTL <= 0 {
		cfg.SpeciesCacheTTL = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("collection: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "spiderlog.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open database", err)
	}
	// One connection keeps the pragmas (foreign_keys is per connection)
	// and gives a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, storageErr(fmt.Sprintf("pragma %q", p), err)
		}
	}

	s := &Store{
		db:      db,
		cfg:     cfg,
		log:     logger.With("module", "collection"),
		// No janitor goroutine: Get already rejects expired entries, and a
		// janitor would outlive Close.
		species: cache.New(cfg.SpeciesCacheTTL, 0),
	}
	ctx := context.Background()
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, storageErr("migration", err)
	}
	if _, err := s.seedSpecies(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database. Later calls return ErrNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// MaxDocuments returns the configured per-spider document cap.
func (s *Store) MaxDocuments() int {
	return s.cfg.MaxDocuments
}

// conn returns the open database or ErrNotInitialized.
func (s *Store) conn() (*sql.DB, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := s.beginTxHook(ctx, db)
	if err != nil {
		return storageErr(op+": begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := s.commitHook(tx); err != nil {
		return storageErr(op+": commit", err)
	}
	return nil
}
