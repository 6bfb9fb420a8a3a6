// Package logging configures the structured zerolog logger shared by every
// component of a sweep.
package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Format is "console" for human-readable lines or "json".
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer

	// Fields are attached to every line (e.g. run_id).
	Fields map[string]string
}

// Setup builds the root logger and installs it as the zerolog global logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.ToLower(cfg.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	for k, v := range cfg.Fields {
		ctx = ctx.Str(k, v)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with the component name.
func Component(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str("component", name).Logger()
}

// LineWriter adapts a logger to io.Writer, emitting one debug event per line.
// It is used to forward job output without buffering it whole.
type LineWriter struct {
	Logger zerolog.Logger
	Field  string
	buf    []byte
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *LineWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *LineWriter) emit(line []byte) {
	s := strings.TrimRight(string(line), "\r")
	if s == "" {
		return
	}
	field := w.Field
	if field == "" {
		field = "line"
	}
	w.Logger.Debug().Str(field, s).Msg("job output")
}
