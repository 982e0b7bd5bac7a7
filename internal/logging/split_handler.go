package logging

import (
	"context"
	"log/slog"
)

// splitHandler sends error records to err and everything else to out.
type splitHandler struct {
	out slog.Handler
	err slog.Handler
}

func (h *splitHandler) pick(level slog.Level) slog.Handler {
	if level >= slog.LevelError {
		return h.err
	}
	return h.out
}

func (h *splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.pick(level).Enabled(ctx, level)
}

func (h *splitHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.pick(record.Level).Handle(ctx, record)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{out: h.out.WithAttrs(attrs), err: h.err.WithAttrs(attrs)}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{out: h.out.WithGroup(name), err: h.err.WithGroup(name)}
}
