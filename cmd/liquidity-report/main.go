// Command liquidity-report ranks the bonds of the last published table
// by traded volume and writes the report as CSV and as an Excel
// workbook under the reports directory.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"motcli/internal/config"
	"motcli/internal/exporter"
	"motcli/internal/infrastructure"
	"motcli/internal/liquidity"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	tablePath := flag.String("table", "", "bond table to analyze (defaults to the published table)")
	flag.Parse()

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
		cfg.Logging.FilePath = paths.LogPath("liquidity-report.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if *tablePath == "" {
		*tablePath = paths.BondTablePath()
	}

	records, err := exporter.ReadTable(*tablePath)
	if err != nil {
		return fmt.Errorf("failed to read bond table %s: %w", *tablePath, err)
	}

	report := liquidity.BuildReport(records)

	if err := liquidity.SaveCSV(report, paths.LiquidityCSVPath()); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	if err := liquidity.SaveExcel(report, paths.LiquidityExcelPath()); err != nil {
		return fmt.Errorf("failed to write Excel report: %w", err)
	}

	logger.Info("liquidity report written",
		slog.Int("bonds", len(report)),
		slog.String("csv", paths.LiquidityCSVPath()),
		slog.String("xlsx", paths.LiquidityExcelPath()))
	return nil
}
