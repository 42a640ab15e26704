package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/bootstrap"
	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/middleware"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Runtime *bootstrap.Runtime

	Handlers *Handlers

	// Middleware
	AuthMiddleware *middleware.AuthMiddleware
	// RateLimitMiddleware is nil without Redis or when the limit is zero
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

// initDependencies initializes all dependencies
func initDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config:         cfg,
		Logger:         logger,
		Runtime:        rt,
		Handlers:       initHandlers(logger, rt, appVersion),
		AuthMiddleware: middleware.NewAuthMiddleware(rt.Services.Auth),
	}

	if rt.Databases.Redis != nil && cfg.Server.RateLimitPerMinute > 0 {
		rlCfg := middleware.DefaultRateLimitConfig()
		rlCfg.Max = cfg.Server.RateLimitPerMinute
		rlCfg.Window = time.Minute
		deps.RateLimitMiddleware = middleware.NewRateLimitMiddleware(rt.Databases.Redis.Client, logger.Named("ratelimit"), rlCfg)
	}

	return deps, nil
}

// Close closes all connections
func (d *Dependencies) Close() {
	d.Runtime.Close()
}
