package main

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// newLogger builds the run logger. Every entry carries the run id so that logs of
// one run can be matched with its store export.
func newLogger(out io.Writer, level, format, runID string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := out
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("run_id", runID).Logger()
}

func newRunID() string {
	return uuid.NewString()
}

var (
	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)
