// Copyright 2025 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package logging configures the zerolog loggers used by the commands.
package logging // import "mellium.im/benderjab/internal/logging"

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// DefaultKeep is the number of rotated log files kept next to the current one.
const DefaultKeep = 14

// Config captures options for building a logger.
type Config struct {
	// Level is a zerolog level name ("debug", "info", etc.).
	// Empty means info.
	Level string

	// File is the path of a log file that is rotated daily.
	// If empty, logs are written to Output.
	File string

	// Keep is the number of rotated files to keep. Zero means DefaultKeep.
	Keep int

	// Output is used when File is empty. Defaults to os.Stderr, which is
	// written in a human readable format if it is a terminal.
	Output io.Writer

	// Service is attached to every entry.
	Service string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg.
// The returned closer releases the log file, if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logging: %w", err)
		}
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case cfg.File != "":
		keep := cfg.Keep
		if keep == 0 {
			keep = DefaultKeep
		}
		f, err := OpenRotating(cfg.File, keep, nil)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		w, closer = f, f
	case cfg.Output != nil:
		w = cfg.Output
	default:
		w = os.Stderr
		if term.IsTerminal(int(os.Stderr.Fd())) {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		}
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	return ctx.Logger(), closer, nil
}

// WithComponent returns a child logger annotated with the given component
// name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// Verbose lowers the level of l to debug.
func Verbose(l zerolog.Logger) zerolog.Logger {
	return l.Level(zerolog.DebugLevel)
}
