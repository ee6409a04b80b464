// Package logging builds the process logger: a text or JSON handler on
// the terminal and, when a log file is configured, a JSON handler on that
// file, fanned out with slog-multi.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	"github.com/jcejohnson/rekorder/internal/config"
)

// Logger is a configured logger together with the files it holds open.
type Logger struct {
	*slog.Logger
	closers []io.Closer
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// ParseLevel converts a configured level name.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

// New builds a logger writing to terminal according to cfg.
func New(cfg config.LogConfig, terminal io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	switch cfg.Format {
	case "json":
		handlers = append(handlers, slog.NewJSONHandler(terminal, opts))
	case "", "text":
		handlers = append(handlers, slog.NewTextHandler(terminal, opts))
	default:
		return nil, fmt.Errorf("log format %q: must be text or json", cfg.Format)
	}

	logger := &Logger{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger.closers = append(logger.closers, f)
		// The file keeps everything down to debug regardless of the
		// terminal level.
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	logger.Logger = slog.New(slogmulti.Fanout(handlers...))
	return logger, nil
}
