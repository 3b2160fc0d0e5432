package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Tally counts the warning and error records emitted during one run.
type Tally struct {
	warnings atomic.Int64
	errors   atomic.Int64
}

// Warnings returns the number of warning records seen.
func (t *Tally) Warnings() int64 {
	if t == nil {
		return 0
	}
	return t.warnings.Load()
}

// Errors returns the number of error records seen.
func (t *Tally) Errors() int64 {
	if t == nil {
		return 0
	}
	return t.errors.Load()
}

func (t *Tally) observe(level slog.Level) {
	switch {
	case level >= slog.LevelError:
		t.errors.Add(1)
	case level >= slog.LevelWarn:
		t.warnings.Add(1)
	}
}

// teeHandler sends each record to every wrapped handler that accepts its
// level. With a tally attached, warnings and errors are always admitted so
// they are counted even when every output is filtered above them.
type teeHandler struct {
	handlers []slog.Handler
	tally    *Tally
}

func newFanoutHandler(tally *Tally, handlers ...slog.Handler) slog.Handler {
	filtered := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	if tally == nil {
		switch len(filtered) {
		case 0:
			return NoopHandler{}
		case 1:
			return filtered[0]
		}
	}
	return &teeHandler{handlers: filtered, tally: tally}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.tally != nil && level >= slog.LevelWarn {
		return true
	}
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.tally != nil {
		h.tally.observe(record.Level)
	}
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next, tally: h.tally}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &teeHandler{handlers: next, tally: h.tally}
}

// NewRunLogger tees base into the per-run log handler. The returned tally
// counts the run's warnings and errors. A nil runLog still yields a counting
// logger over base.
func NewRunLogger(base *slog.Logger, runLog slog.Handler) (*slog.Logger, *Tally) {
	tally := &Tally{}
	handlers := []slog.Handler{runLog}
	if base != nil {
		handlers = append(handlers, base.Handler())
	}
	return slog.New(newFanoutHandler(tally, handlers...)), tally
}
