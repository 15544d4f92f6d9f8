// Command scraper runs one complete scraping cycle: load the tradable
// ISIN universe, scrape every instrument page, and atomically publish
// the aggregated bond table. It takes no arguments; configuration comes
// from the environment and the optional config file.
//
// The exit code reflects only fatal failures. Per-instrument skips are
// reported in the run summary and leave the exit code at zero.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"motcli/internal/config"
	apperrors "motcli/internal/errors"
	"motcli/internal/exporter"
	"motcli/internal/infrastructure"
	"motcli/internal/listino"
	"motcli/internal/pipeline"
	"motcli/internal/scrape"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = paths.LogPath("scraper.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	runID := uuid.New().String()
	ctx := infrastructure.WithRunID(context.Background(), runID)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "scrape run starting",
		slog.String("listino_url", cfg.Source.ListinoURL),
		slog.Int("workers", cfg.Scrape.Workers))

	source := listino.NewSource(cfg.Source, logger)
	client := scrape.NewClient(cfg.Scrape, logger)
	scraper := scrape.NewScraper(client, logger)
	writer := exporter.NewWriter(paths, logger)

	runner := pipeline.NewRunner(source, scraper, writer, cfg.Scrape.Workers, logger)
	summary, err := runner.Run(ctx, runID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "scrape run cancelled, nothing published")
			return fmt.Errorf("run cancelled")
		}
		logger.ErrorContext(ctx, "scrape run failed",
			slog.String("code", string(apperrors.CodeOf(err))),
			slog.String("error", err.Error()))
		return err
	}

	logger.InfoContext(ctx, "scrape run finished",
		slog.Int("attempted", summary.Attempted),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.String("table", paths.BondTablePath()))
	return nil
}
