package bootstrap

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/pkg/database"
	"github.com/rolodex/rolodex/api/internal/pkg/storage"
	mongorepo "github.com/rolodex/rolodex/api/internal/repository/mongo"
	"github.com/rolodex/rolodex/api/internal/worker"
)

// Databases holds the backend connections opened for the configured store
// driver. Optional backends are nil when not configured.
type Databases struct {
	Mongo    *database.MongoDB
	Postgres *database.PostgresDB
	Redis    *database.RedisDB
	Minio    *minio.Client
	Tasks    *asynq.Client
}

// Check is a named backend probe
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// openDatabases opens the entity store selected by cfg.Store.Driver and the
// optional Redis and MinIO backends
func openDatabases(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Databases, error) {
	dbs := &Databases{}

	switch cfg.Store.Driver {
	case config.StoreMongo:
		mdb, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		dbs.Mongo = mdb
		if err := mongorepo.EnsureIndexes(ctx, mdb.DB); err != nil {
			dbs.Close()
			return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
		}
	case config.StorePostgres:
		pg, err := database.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		dbs.Postgres = pg
	case config.StoreMemory:
		logger.Warn("using the in-memory store, data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	// An empty host runs without cache, rate limiting and background tasks
	if cfg.Redis.Host != "" {
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			dbs.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		dbs.Redis = rdb
		dbs.Tasks = asynq.NewClient(worker.RedisOpt(cfg.Redis))
	}

	minioClient, err := storage.NewMinioClient(ctx, cfg.MinIO)
	if err != nil {
		logger.Warn("failed to initialize MinIO, exports will be unavailable", zap.Error(err))
	}
	dbs.Minio = minioClient

	return dbs, nil
}

// Checks returns a probe for every open backend
func (d *Databases) Checks(bucket string) []Check {
	var checks []Check
	if d.Mongo != nil {
		checks = append(checks, Check{Name: "mongo", Ping: d.Mongo.Ping})
	}
	if d.Postgres != nil {
		checks = append(checks, Check{Name: "postgres", Ping: d.Postgres.Ping})
	}
	if d.Redis != nil {
		checks = append(checks, Check{Name: "redis", Ping: d.Redis.Ping})
	}
	if d.Minio != nil {
		client := d.Minio
		checks = append(checks, Check{Name: "minio", Ping: func(ctx context.Context) error {
			_, err := client.BucketExists(ctx, bucket)
			return err
		}})
	}
	return checks
}

// Close closes every open connection
func (d *Databases) Close() {
	if d.Mongo != nil {
		_ = d.Mongo.Close(context.Background())
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	if d.Tasks != nil {
		_ = d.Tasks.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
