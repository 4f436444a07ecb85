// Package observe holds the gateway's logging and metrics setup.
package observe

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs a JSON slog handler as the default logger.
// Output goes to stderr: stdout carries the MCP protocol stream.
func InitLogger(levelStr string) {
	slog.SetDefault(NewLogger(os.Stderr, levelStr))
}

// NewLogger builds a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, levelStr string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(levelStr),
		AddSource: true,
	})
	return slog.New(handler)
}

// ParseLevel maps a config string to a slog level, defaulting to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
