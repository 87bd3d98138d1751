// Package logging builds the process logger from config.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"fluxtodo/internal/config"
)

// New returns a logger and a close function. --debug logs everything to
// errOut as text. Otherwise log.file, when set, receives JSON records at
// log.level through a rotating writer. With neither, logs are discarded.
func New(cfg *config.Config, errOut io.Writer) (*slog.Logger, func() error, error) {
	if cfg.Debug {
		h := slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(h), nop, nil
	}
	if cfg.Log.File == "" {
		return slog.New(slog.DiscardHandler), nop, nil
	}

	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h), w.Close, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func nop() error { return nil }

type ctxKey struct{}

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger placed by WithLogger, or a discarding
// logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
