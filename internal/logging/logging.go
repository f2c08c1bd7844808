// Package logging builds the process logger.
//
// Logs always go to stderr: stdout carries the MCP protocol when serving
// and command output otherwise.
package logging

import (
	"io"
	"log/slog"
	"os"
)

var levelVar = new(slog.LevelVar)

// New returns a text logger writing to w at level. A nil w means stderr.
// The level can be changed later with SetLevel.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	levelVar.Set(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// SetLevel changes the level of every logger built by New.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// Discard returns a logger that drops everything. Useful for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
