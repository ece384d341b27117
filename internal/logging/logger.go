// Package logging provides component-scoped zerolog loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	rootMu sync.RWMutex
	root   = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
)

// Logger wraps zerolog with a fixed component tag.
type Logger struct {
	zl zerolog.Logger
}

// Setup configures the process-wide root logger. format "console" gives
// human-readable output; anything else writes JSON lines.
func Setup(w io.Writer, level, format string) {
	if w == nil {
		w = os.Stderr
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	rootMu.Lock()
	defer rootMu.Unlock()
	root = zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
}

// New creates a standalone logger writing to w at the given level.
func New(w io.Writer, level string) *Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{zl: zl.Level(ParseLevel(level))}
}

// NewLogger returns a child of the root logger tagged with component.
func NewLogger(component string) *Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return &Logger{zl: root.With().Str("component", component).Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Sub returns a child logger tagged with a different component.
func (l *Logger) Sub(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "silent", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
