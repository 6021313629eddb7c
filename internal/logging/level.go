package logging

import (
	"log/slog"
	"strings"
)

// DefaultLevel is used when no level is configured or the configured
// value does not parse.
const DefaultLevel = slog.LevelInfo

// ParseLevel converts a level name to a slog.Level.
// Accepted values (case-insensitive): debug, info, warn, error.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return DefaultLevel, false
	}
}

// ParseLevelOrDefault converts a level name to a slog.Level, falling back
// to DefaultLevel for unknown values.
func ParseLevelOrDefault(s string) slog.Level {
	level, _ := ParseLevel(s)
	return level
}
