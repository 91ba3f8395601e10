// Package logger provides structured logging for the bptree core
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with bptree-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	// Set global log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Create logger
	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "bptree").
		Logger()

	// Add caller information if requested
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message, attaching err when non-nil
func (l *Logger) Error(msg string, err error) *zerolog.Event {
	e := l.zlog.Error().Str("msg", msg)
	if err != nil {
		e = e.Err(err)
	}
	return e
}

// TreeLogger returns a logger scoped to a single tree operation
// (insert, delete, split, merge, distribute, remove-root). Every field
// logged through the returned Logger carries component=btree and
// operation=<operation> automatically.
func (l *Logger) TreeLogger(operation string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "btree").
			Str("operation", operation).
			Logger(),
	}
}

// LogRebalance logs a structural rebalance event (split/merge/distribute/
// remove-root) with the tree's logical size at that moment. Call through
// TreeLogger(operation) so the operation name is already attached.
func (l *Logger) LogRebalance(treeSize int) {
	l.zlog.Debug().
		Int("tree_size", treeSize).
		Msg("rebalance applied")
}

// LogInvariantViolation logs an invariant violation immediately before the
// core panics, so the failure is visible even if the panic is recovered
// further up the call stack. Call through TreeLogger(operation) so the
// operation name is already attached.
func (l *Logger) LogInvariantViolation(err error) {
	l.zlog.Error().
		Err(err).
		Msg("invariant violation")
}
