package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// SwappableHandler is a slog.Handler whose underlying handler can be
// replaced atomically at runtime. Loggers built on it stay valid across
// a swap, which lets the process transition from bootstrap logging to
// full logging without re-creating loggers.
type SwappableHandler struct {
	inner atomic.Pointer[slog.Handler]
}

// NewSwappableHandler creates a SwappableHandler wrapping the given handler.
func NewSwappableHandler(h slog.Handler) *SwappableHandler {
	sh := &SwappableHandler{}
	sh.inner.Store(&h)
	return sh
}

// Swap replaces the underlying handler. Safe for concurrent use.
func (s *SwappableHandler) Swap(h slog.Handler) {
	s.inner.Store(&h)
}

func (s *SwappableHandler) current() slog.Handler {
	return *s.inner.Load()
}

// Enabled reports whether the current handler handles records at the given level.
func (s *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

// Handle passes the record to the current handler.
func (s *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

// WithAttrs returns a handler with the attributes added to the current handler.
// The returned handler does not follow future swaps.
func (s *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.current().WithAttrs(attrs)
}

// WithGroup returns a handler with the group applied to the current handler.
// The returned handler does not follow future swaps.
func (s *SwappableHandler) WithGroup(name string) slog.Handler {
	return s.current().WithGroup(name)
}
