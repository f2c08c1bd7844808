package collection

import (
	"database/sql"
	"testing"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in collection_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetClock pins the package clock for the duration of a test.
func SetClock(t *testing.T, now time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
}

// FailCommits makes every commit on s fail with err.
func (s *Store) FailCommits(err error) {
	s.hooks.commit = func(tx *sql.Tx) error {
		_ = tx.Rollback()
		return err
	}
}

// DefaultSpeciesCount is the size of the seed list.
var DefaultSpeciesCount = len(defaultSpecies)
