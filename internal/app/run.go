package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/reportflow/internal/config"
	"github.com/vk/reportflow/internal/ctxlog"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/flow"
	"github.com/vk/reportflow/internal/layout"
	"github.com/vk/reportflow/internal/report"
)

// Summary describes a finished, or interrupted, run.
type Summary struct {
	RunID    uuid.UUID
	Steps    int
	Rows     int
	Duration time.Duration
}

// Run lays out root over table, sending every event to target. The run stops
// at the first error; events already delivered are not rolled back. ctx is
// checked between steps, so cancellation takes effect at a step boundary.
func (app *App) Run(ctx context.Context, root *report.Node, table *datarow.Table, target layout.Target) (*Summary, error) {
	summary := &Summary{RunID: uuid.New()}
	logger := app.logger.With("run_id", summary.RunID.String())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	if err := report.Validate(root); err != nil {
		return summary, err
	}
	if table != nil {
		summary.Rows = table.Len()
	}

	runCfg, err := config.Load(ctx, app.config.RunConfigPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load run configuration: %w", err)
	}
	loc, err := runCfg.Localization()
	if err != nil {
		return summary, err
	}

	fc := flow.New(table, flow.WithConfiguration(runCfg), flow.WithLocalization(loc))
	if err := checkFormulas(root, fc.FormulaContext()); err != nil {
		return summary, err
	}
	lc, err := layout.New(root, fc)
	if err != nil {
		return summary, err
	}

	logger.Info("Starting report run.", "report", root.Name(), "rows", summary.Rows, "locale", loc.Locale().String())
	for !(lc.IsFinished() && lc.Parent() == nil) {
		if err := ctx.Err(); err != nil {
			logger.Warn("Report run interrupted.", "steps", summary.Steps, "error", err)
			return summary, err
		}
		lc, err = lc.Advance(ctx, target)
		if err != nil {
			return summary, fmt.Errorf("layout failed after %d steps: %w", summary.Steps, err)
		}
		summary.Steps++
	}

	logger.Info("Report run finished.", "report", root.Name(), "steps", summary.Steps)
	logger.Debug("App.Run method finished.")
	return summary, nil
}
