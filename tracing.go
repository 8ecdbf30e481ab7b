package fffpicker

import (
	"fmt"
	"log/slog"
	"os"
)

// initTracing builds a JSON slog handler writing to logPath (or stderr if
// empty) at the given level, and installs it as the default logger, the
// same pattern cmd/fffpicker uses for its own CLI-driven logger.
func initTracing(logPath, level string) error {
	var out *os.File
	if logPath == "" {
		out = os.Stderr
	} else {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("fffpicker: open trace log: %w", err)
		}
		out = f
	}

	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}
