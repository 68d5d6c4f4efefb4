package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/deusflow/techposter/internal/app"
	"github.com/deusflow/techposter/internal/config"
	"github.com/deusflow/techposter/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 1
	}

	log := logger.New(logger.Options{Debug: cfg.Debug, Format: cfg.LogFormat})

	pcfg, found, err := config.LoadPipeline(cfg.PipelineFile)
	if err != nil {
		log.Error("failed to load pipeline config", "path", cfg.PipelineFile, "error", err)
		return 1
	}
	if !found {
		log.Info("pipeline config not found, using defaults", "path", cfg.PipelineFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, pcfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", "error", err)
		return 1
	}

	log.Info("bot stopped")
	return 0
}
