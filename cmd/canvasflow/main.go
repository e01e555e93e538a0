package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayushsoni02/Canvas-Flow/internal/server"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/ayushsoni02/Canvas-Flow/pkg/config"
	"github.com/ayushsoni02/Canvas-Flow/pkg/logging"
)

func main() {
	bootLogger := logging.New(logging.LevelInfo, true)

	cfg, err := config.Load(bootLogger, "config")
	if err != nil {
		bootLogger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	level := logging.LevelInfo
	if cfg.IsDevelopment() {
		level = logging.LevelDebug
	}
	logger := logging.New(level, cfg.IsDevelopment())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DatabaseURL, cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("Failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("Store ready", slog.String("driver", cfg.Storage.Driver))

	app, err := server.NewApp(logger, ctx, cfg, st)
	if err != nil {
		logger.Error("Failed to build application", slog.Any("error", err))
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
