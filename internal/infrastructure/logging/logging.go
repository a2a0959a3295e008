package logging

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

type Config struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxAge     time.Duration
	MaxBackups int
}

// Init installs the default slog logger. Console output follows Format; the
// optional log file always receives plain text records. The returned writer
// is nil when no file is configured and must be closed by the caller.
func Init(cfg Config) (*RotatingWriter, error) {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	console, err := consoleHandler(os.Stdout, cfg.Format, level)
	if err != nil {
		return nil, err
	}
	handlers := []slog.Handler{console}

	var rotating *RotatingWriter
	if strings.TrimSpace(cfg.File) != "" {
		rotating, err = NewRotatingWriter(cfg.File, Rotation{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(rotating, opts))
	}

	handler := fanout(handlers)
	slog.SetDefault(slog.New(handler))

	stdLogger := slog.NewLogLogger(handler, level)
	log.SetFlags(0)
	log.SetOutput(stdLogger.Writer())

	return rotating, nil
}

func consoleHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatPretty:
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}), nil
	default:
		return nil, errors.New("unknown log format " + format)
	}
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fanout(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return teeHandler(handlers)
}

// teeHandler forwards each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
