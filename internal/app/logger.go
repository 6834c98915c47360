package app

import (
	"io"
	"log/slog"
)

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances. Unknown
// levels fall back to info; NewConfig rejects them before this point.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if levelStr != "" {
		if err := level.UnmarshalText([]byte(levelStr)); err != nil {
			level = slog.LevelInfo
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}
