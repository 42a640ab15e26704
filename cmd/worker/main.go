package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/bootstrap"
	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/pkg/logger"
	"github.com/rolodex/rolodex/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = logger.Sync() }()

	if cfg.Redis.Host == "" {
		log.Fatal("the worker needs Redis; set REDIS_HOST")
	}

	log.Info("starting worker service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rt, err := bootstrap.New(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer rt.Close()

	workerServer, err := worker.NewServer(log, cfg, workerDependencies(rt))
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// workerDependencies maps the runtime services onto the task handlers
func workerDependencies(rt *bootstrap.Runtime) *worker.Dependencies {
	deps := &worker.Dependencies{
		Reconciler: rt.Services.Relationships,
		Sweeper:    rt.Services.Relationships,
	}
	if rt.Databases.Minio != nil {
		deps.Snapshots = rt.Services.Exports
	}
	return deps
}
