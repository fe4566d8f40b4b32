// Package logger configures slog for phrasebot and carries per-message log
// fields through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
)

type ctxKey int

const (
	messageIDKey ctxKey = iota
	attrsKey
)

// Setup installs the process-wide logger on stdout.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. format is "json" or "text"; unknown
// levels fall back to info.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, messageIDKey, messageID)
}

func MessageID(ctx context.Context) string {
	id, _ := ctx.Value(messageIDKey).(string)
	return id
}

// WithAttrs adds key/value pairs that every logger derived from ctx carries.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey).([]any)
	return context.WithValue(ctx, attrsKey, append(slices.Clip(prev), args...))
}

// FromContext is Enrich applied to the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	return Enrich(ctx, slog.Default())
}

// Enrich returns base with the message id and attrs stored in ctx.
func Enrich(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := MessageID(ctx); id != "" {
		base = base.With("message_id", id)
	}
	if attrs, _ := ctx.Value(attrsKey).([]any); len(attrs) > 0 {
		base = base.With(attrs...)
	}
	return base
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
