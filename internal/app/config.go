package app

import (
	"errors"
	"fmt"
)

// DefaultDriver is the database/sql driver used when none is configured.
const DefaultDriver = "sqlite"

// DataSource describes the SQL query that produces the report rows.
type DataSource struct {
	Driver string
	DSN    string
	Query  string
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	LayoutPath    string // report layout .hcl file
	RunConfigPath string // run .hcl file or directory
	OutputPath    string // YAML event stream, stdout when empty

	DataSource DataSource

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid LogFormat '%s': must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LogLevel '%s': must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	ds := cfg.DataSource
	if ds.DSN != "" || ds.Query != "" {
		if ds.DSN == "" {
			return nil, errors.New("DataSource.DSN is required when a query is configured")
		}
		if ds.Query == "" {
			return nil, errors.New("DataSource.Query is required when a DSN is configured")
		}
		if ds.Driver == "" {
			cfg.DataSource.Driver = DefaultDriver
		}
	}

	return &cfg, nil
}
