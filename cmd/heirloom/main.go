package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msegal/heirloom/internal/api"
	"github.com/msegal/heirloom/internal/config"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/http"
	"github.com/msegal/heirloom/internal/log"
	"github.com/msegal/heirloom/internal/setup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const setupTime = 30 * time.Second
	setupCtx, cancel := context.WithTimeout(ctx, setupTime)
	defer cancel()

	logger := log.New(nil)

	conf, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	httpClient := http.New()

	db, err := setup.Database(setupCtx, conf)
	if err != nil {
		logger.Error("failed to setup database", slog.Any("error", err))
		os.Exit(1)
	}

	fs, err := setup.FileStore(setupCtx, conf)
	if err != nil {
		logger.Error("failed to setup file store", slog.Any("error", err))
		os.Exit(1)
	}

	environment := env.New(logger, db, fs, httpClient, conf)

	if err := api.Start(environment); err != nil {
		environment.Logger.Error("API failed", slog.Any("error", err))
		os.Exit(1)
	}
}
