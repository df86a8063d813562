// Package obslog configures the process-wide structured logger. The rest of
// the core never constructs its own zerolog.Logger; it receives one built by
// New, NewConsole or Disabled.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w with the given component name
// attached to every line. A nil w falls back to os.Stderr.
func New(w io.Writer, component string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// NewConsole builds a human-readable console logger for CLI entry points,
// mirroring the colorable/isatty-aware output gnark's own logger produces.
func NewConsole(component string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(out).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Disabled returns a logger that drops every event; useful for tests that
// don't want CLI noise.
func Disabled() zerolog.Logger {
	return zerolog.Nop()
}
