// Package bootstrap opens the configured backends and wires repositories and
// services for the server and worker processes.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/events"
	"github.com/rolodex/rolodex/api/internal/service"
)

// Runtime is everything a process needs apart from its transport
type Runtime struct {
	Config       *config.Config
	Logger       *zap.Logger
	Databases    *Databases
	Repositories *Repositories
	Services     *Services

	kafka *events.KafkaPublisher
}

// New opens the backends named by cfg and wires the services over them
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	dbs, err := openDatabases(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repos, err := initRepositories(cfg, dbs)
	if err != nil {
		dbs.Close()
		return nil, err
	}

	rt := &Runtime{
		Config:       cfg,
		Logger:       logger,
		Databases:    dbs,
		Repositories: repos,
	}

	var publisher service.EventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kafka, err := events.NewKafkaPublisher(cfg.Kafka, logger)
		if err != nil {
			dbs.Close()
			return nil, fmt.Errorf("failed to initialize Kafka: %w", err)
		}
		rt.kafka = kafka
		publisher = kafka
	}

	rt.Services = initServices(cfg, logger, repos, dbs, publisher)

	logger.Info("runtime ready",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("redis", dbs.Redis != nil),
		zap.Bool("minio", dbs.Minio != nil),
		zap.Bool("kafka", rt.kafka != nil),
	)
	return rt, nil
}

// Checks returns a probe for every open backend
func (r *Runtime) Checks() []Check {
	return r.Databases.Checks(r.Config.MinIO.Bucket)
}

// Close releases the publisher and every connection
func (r *Runtime) Close() {
	if r.kafka != nil {
		if err := r.kafka.Close(); err != nil {
			r.Logger.Warn("failed to close kafka publisher", zap.Error(err))
		}
	}
	r.Databases.Close()
}
