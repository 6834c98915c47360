package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/report"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// ErrNoDataSource is returned by LoadTable when no query is configured.
var ErrNoDataSource = errors.New("no data source configured")

// LoadLayout reads the configured report layout.
func (app *App) LoadLayout(ctx context.Context) (*report.Node, error) {
	if app.config.LayoutPath == "" {
		return nil, errors.New("no layout path configured")
	}
	return report.Load(ctxlog.WithLogger(ctx, app.logger), app.config.LayoutPath)
}

// LoadTable runs the configured query and returns its rows.
func (app *App) LoadTable(ctx context.Context) (*datarow.Table, error) {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	ds := app.config.DataSource
	if ds.Query == "" {
		return nil, ErrNoDataSource
	}
	app.logger.Debug("Opening data source.", "driver", ds.Driver)

	db, err := sql.Open(ds.Driver, ds.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s data source: %w", ds.Driver, err)
	}
	defer db.Close()

	table, err := datarow.FromSQL(ctx, db, ds.Query)
	if err != nil {
		return nil, err
	}
	app.logger.Info("Data source loaded.", "rows", table.Len(), "columns", len(table.Columns()))
	return table, nil
}
