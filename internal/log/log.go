// Package log builds the slog loggers the rest of the program injects
// through constructors. Nothing here is pulled from package globals;
// components tag their entries with logger.With("component", ...).
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so call sites keep the full slog API
// without this package re-wrapping it behind an interface.
type Logger = *slog.Logger

// Config selects the handler and its options.
type Config struct {
	// Level is the minimum level emitted. Zero value is slog.LevelInfo.
	Level slog.Level

	// JSON switches from the text handler to the JSON handler.
	JSON bool

	// AddSource annotates entries with the caller's file and line.
	AddSource bool
}

// New returns a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w. Tests pass a buffer here
// to assert on output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger whose output is discarded. Test-only; wiring
// it into production code hides failures.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
