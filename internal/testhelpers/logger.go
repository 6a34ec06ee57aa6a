// Package testhelpers contains helpers shared by the package tests.
package testhelpers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/fitfocus/internal/logging"
)

// NewLogger creates a debug level logger writing to logSink, usually a [Writer].
func NewLogger(logSink io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))
}

// NewTestLogger is NewLogger(NewWriter(t)).
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return NewLogger(NewWriter(t))
}
