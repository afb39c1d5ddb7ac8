package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"notebase/internal/app"
	"notebase/internal/config"
	"notebase/internal/logger"
)

func main() {
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("application exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.Embedder.Close()

	a, err := app.New(cfg, deps.DB, deps.VectorStore, deps.Embedder)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
