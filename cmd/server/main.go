// Command server serves the published scrape results over a read-only
// JSON API, with Prometheus metrics describing snapshot freshness.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"motcli/internal/config"
	"motcli/internal/infrastructure"
	transport "motcli/internal/transport/http"
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

	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = paths.LogPath("server.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := transport.NewSnapshotStore(paths, logger)
	server := transport.NewServer(cfg.Server, store, logger)
	return server.ListenAndServe(ctx)
}
