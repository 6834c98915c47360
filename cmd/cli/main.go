package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/reportflow/internal/app"
	"github.com/vk/reportflow/internal/cli"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/vk/reportflow/internal/target"
)

// main is the entrypoint for the reportflow application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Events go to outW unless an output file is configured; logs go to errW.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	reportApp := app.NewApp(errW, appConfig)

	root, err := reportApp.LoadLayout(ctx)
	if err != nil {
		return err
	}

	var table *datarow.Table
	if appConfig.DataSource.Query != "" {
		if table, err = reportApp.LoadTable(ctx); err != nil {
			return err
		}
	}

	if appConfig.OutputPath != "" {
		f, err := os.Create(appConfig.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		outW = f
	}

	writer := target.NewYAMLWriter(outW)
	_, runErr := reportApp.Run(ctx, root, table, writer)
	if err := writer.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
