package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", "debug", slog.LevelDebug, true},
		{"info", "info", slog.LevelInfo, true},
		{"warn", "warn", slog.LevelWarn, true},
		{"warning alias", "warning", slog.LevelWarn, true},
		{"error", "error", slog.LevelError, true},
		{"mixed case", "DeBuG", slog.LevelDebug, true},
		{"padded", "  info  ", slog.LevelInfo, true},
		{"unknown", "verbose", DefaultLevel, false},
		{"empty", "", DefaultLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, NoTraceID, TraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", TraceID(ctx))

	// Empty trace id does not overwrite
	assert.Equal(t, "abc-123", TraceID(WithTraceID(ctx, "")))
}

func TestTraceHandlerStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithTraceID(context.Background(), "trace-xyz")
	logger.InfoContext(ctx, "processing", "file", "a.json")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "trace-xyz", record["trace_id"])
	assert.Equal(t, "a.json", record["file"])
}

func TestTraceHandlerNoTraceInContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

	logger.Info("startup")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, NoTraceID, record["trace_id"])
}

func TestSwappableHandler(t *testing.T) {
	var first, second bytes.Buffer

	handler := NewSwappableHandler(slog.NewTextHandler(&first, nil))
	logger := slog.New(handler)

	logger.Info("before swap")
	handler.Swap(slog.NewTextHandler(&second, nil))
	logger.Info("after swap")

	assert.Contains(t, first.String(), "before swap")
	assert.NotContains(t, first.String(), "after swap")
	assert.Contains(t, second.String(), "after swap")
}

func TestManagerUpgrade(t *testing.T) {
	m := NewManager()
	logFile := filepath.Join(t.TempDir(), "logs", "ragstage.log")

	require.NoError(t, m.Upgrade(logFile, slog.LevelDebug))
	defer func() { _ = m.Close() }()

	m.Logger().Debug("upgraded")

	assert.FileExists(t, logFile)
}
