package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunzafer/fastsvelte/internal/app"
	"github.com/harunzafer/fastsvelte/internal/config"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("fastsvelte-api", cfg.LogLevel)
	log.Info("starting fastsvelte api",
		slog.String("environment", cfg.Environment),
		slog.String("mode", cfg.Mode),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("fastsvelte api stopped")
}
