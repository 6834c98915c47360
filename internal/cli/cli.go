package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/reportflow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("reportflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
reportflow - lays out a report over a SQL result set and writes its event stream.

Usage:
  reportflow [options] [LAYOUT_PATH]

Arguments:
  LAYOUT_PATH
    Path to the .hcl report layout file.

Options:
`)
		flagSet.PrintDefaults()
	}

	layoutFlag := flagSet.String("layout", "", "Path to the report layout file.")
	lFlag := flagSet.String("l", "", "Path to the report layout file (shorthand).")
	runFlag := flagSet.String("run", "", "Path to the run configuration file or directory.")
	driverFlag := flagSet.String("driver", app.DefaultDriver, "database/sql driver of the data source.")
	dsnFlag := flagSet.String("dsn", "", "Data source name, e.g. the sqlite database file.")
	queryFlag := flagSet.String("query", "", "Query producing the report rows.")
	outFlag := flagSet.String("out", "", "Write the YAML event stream to this file instead of stdout.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *layoutFlag != "" {
		path = *layoutFlag
	} else if *lFlag != "" {
		path = *lFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Layout path determined.", "path", path)

	if path == "" {
		slog.Debug("No layout path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		LayoutPath:    path,
		RunConfigPath: *runFlag,
		OutputPath:    *outFlag,
		DataSource: app.DataSource{
			Driver: *driverFlag,
			DSN:    *dsnFlag,
			Query:  *queryFlag,
		},
		LogFormat: strings.ToLower(*logFormatFlag),
		LogLevel:  strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "layout", config.LayoutPath)
	return config, false, nil
}
