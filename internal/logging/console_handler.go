package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// consoleHandler writes one line per record:
//
//	2026-03-02T10:30:00Z INFO writer: drafted item item_id=7 topic="retail media"
//
// The component attribute becomes the line prefix. Attributes added through
// WithAttrs are rendered once and reused for every record.
type consoleHandler struct {
	w         io.Writer
	level     *slog.LevelVar
	addSource bool

	component string
	group     string // dotted prefix for attributes added after WithGroup
	preset    []byte
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	component := h.component

	buf := make([]byte, 0, 256)
	var attrs []byte
	r.Attrs(func(a slog.Attr) bool {
		if h.group == "" && a.Key == FieldComponent {
			if component == "" {
				component = valueText(a.Value)
			}
			return true
		}
		attrs = appendAttr(attrs, h.group, a)
		return true
	})

	buf = ts.UTC().AppendFormat(buf, time.RFC3339)
	buf = append(buf, ' ')
	buf = append(buf, levelLabel(r.Level)...)
	buf = append(buf, ' ')
	if component != "" {
		buf = append(buf, component...)
		buf = append(buf, ": "...)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf = append(buf, msg...)
	if h.addSource {
		if src := r.Source(); src != nil {
			buf = append(buf, " ["...)
			buf = append(buf, filepath.Base(src.File)...)
			buf = append(buf, ':')
			buf = strconv.AppendInt(buf, int64(src.Line), 10)
			buf = append(buf, ']')
		}
	}
	buf = append(buf, h.preset...)
	buf = append(buf, attrs...)
	buf = append(buf, '\n')

	_, err := h.w.Write(buf)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.preset = append([]byte(nil), h.preset...)
	for _, a := range attrs {
		if h.group == "" && a.Key == FieldComponent {
			if next.component == "" {
				next.component = valueText(a.Value)
			}
			continue
		}
		next.preset = appendAttr(next.preset, h.group, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}
