package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"codestory/internal/config"
	"codestory/internal/daemon"
	"codestory/internal/logging"
	"codestory/internal/notifications"
	"codestory/internal/pipeline"
	"codestory/internal/progress"
	"codestory/internal/runs"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := runs.Open(cfg)
	if err != nil {
		logger.Error("open run store", logging.Error(err))
		return
	}

	hub := progress.NewHub(cfg.Pipeline.EventBufferSize)
	notifier := notifications.NewService(cfg)
	svc := pipeline.NewService(cfg, store, hub, notifier, logger, buildExecutors(cfg, logger)...)

	d, err := daemon.New(cfg, store, svc, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("codestoryd shutting down")
}
