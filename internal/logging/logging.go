// Package logging provides structured logging for services.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides logging for services. Arguments after the message are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config controls logger construction.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// zeroLogger implements Logger on top of zerolog.
type zeroLogger struct {
	log zerolog.Logger
}

// New creates a Logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a Logger writing to the given writer.
func NewWithWriter(cfg Config, w io.Writer) Logger {
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	level := parseLevel(cfg.Level)
	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zeroLogger{log: log}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return &zeroLogger{log: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *zeroLogger) Debug(msg string, args ...any) { l.emit(l.log.Debug(), msg, args) }
func (l *zeroLogger) Info(msg string, args ...any)  { l.emit(l.log.Info(), msg, args) }
func (l *zeroLogger) Warn(msg string, args ...any)  { l.emit(l.log.Warn(), msg, args) }
func (l *zeroLogger) Error(msg string, args ...any) { l.emit(l.log.Error(), msg, args) }

// emit attaches alternating key/value pairs to the event. A trailing key
// without a value is logged under "arg".
func (l *zeroLogger) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			ev = ev.Interface("arg", args[i]).Interface("value", args[i+1])
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	if len(args)%2 == 1 {
		ev = ev.Interface("arg", args[len(args)-1])
	}
	ev.Msg(msg)
}
