package app

import (
	"io"
	"log/slog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
	}
}

// Logger returns the application's logger.
func (app *App) Logger() *slog.Logger {
	return app.logger
}
