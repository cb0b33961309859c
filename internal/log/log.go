// Package log provides a context-aware slog logger.
package log

import (
	"context"
	"log/slog"
	"os"
)

type attrsKeyType struct{}

var attrsKey attrsKeyType

// ContextHandler copies attributes stashed in the context onto every
// record before handing off to the wrapped handler.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(attrsKey).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// AppendCtx attaches an slog attribute to the context so that it is
// included in every record logged with that context.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	if v, ok := parent.Value(attrsKey).([]slog.Attr); ok {
		attrs := make([]slog.Attr, len(v), len(v)+1)
		copy(attrs, v)
		return context.WithValue(parent, attrsKey, append(attrs, attr))
	}
	return context.WithValue(parent, attrsKey, []slog.Attr{attr})
}

func New(options *slog.HandlerOptions) *slog.Logger {
	if options == nil {
		options = &slog.HandlerOptions{Level: slog.LevelDebug}
	}
	return slog.New(ContextHandler{
		Handler: slog.NewJSONHandler(os.Stderr, options),
	})
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// NullLogger returns a logger that drops everything. Used in tests.
func NullLogger() *slog.Logger {
	return slog.New(ContextHandler{
		Handler: slog.NewJSONHandler(discardWriter{}, &slog.HandlerOptions{}),
	})
}
