// Package logging builds the process-wide slog logger from config.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a logger writing to w in the given format ("json" or "text").
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup installs the logger as the default, which also routes the standard
// log package through it.
func Setup(w io.Writer, level slog.Level, format string) *slog.Logger {
	logger := New(w, level, format)
	slog.SetDefault(logger)

	return logger
}
