package logging

import (
	"context"
	"log/slog"
)

type traceIDKey struct{}

// NoTraceID is logged when no trace id is present in the context.
const NoTraceID = "-"

// WithTraceID returns a context carrying the given trace id.
// Workers call this before processing a message so that every log record
// emitted during processing carries the message's trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID returns the trace id carried by the context, or NoTraceID.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok && id != "" {
		return id
	}
	return NoTraceID
}

// TraceHandler is a slog.Handler that stamps the context trace id onto
// every record before delegating to the wrapped handler.
type TraceHandler struct {
	inner slog.Handler
}

// NewTraceHandler wraps a handler with trace id stamping.
func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{inner: h}
}

// Enabled reports whether the wrapped handler handles records at the given level.
func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the trace_id attribute and delegates to the wrapped handler.
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(slog.String("trace_id", TraceID(ctx)))
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a TraceHandler wrapping the inner handler with attrs added.
func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a TraceHandler wrapping the inner handler with the group applied.
func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{inner: h.inner.WithGroup(name)}
}
