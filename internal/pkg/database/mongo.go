package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/pkg/logger"
	"github.com/rolodex/rolodex/api/internal/pkg/metrics"
)

// MongoDB wraps a MongoDB client and the application database
type MongoDB struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongo connects to MongoDB and verifies the connection
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoDB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetMonitor(commandMonitor())

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", cfg.Database),
	)

	return &MongoDB{Client: client, DB: client.Database(cfg.Database)}, nil
}

// Close disconnects the client
func (db *MongoDB) Close(ctx context.Context) error {
	if db.Client == nil {
		return nil
	}
	return db.Client.Disconnect(ctx)
}

// Ping checks the connection
func (db *MongoDB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, readpref.Primary())
}

// commandMonitor records command durations the same way the postgres tracer
// does. The finish events do not carry the command body, so the target
// collection is remembered per request id between start and finish.
func commandMonitor() *event.CommandMonitor {
	var targets sync.Map

	finish := func(e event.CommandFinishedEvent, failed bool) metrics.StoreOp {
		collection, _ := targets.LoadAndDelete(e.RequestID)
		name, _ := collection.(string)
		op := metrics.StoreOp{Backend: "mongo", Collection: name, Operation: e.CommandName}
		op.Observe(e.Duration, failed)
		return op
	}

	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			targets.Store(e.RequestID, commandCollection(e.Command, e.CommandName))
		},
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			op := finish(e.CommandFinishedEvent, false)
			if e.Duration > slowQueryThreshold {
				logger.Warn("slow mongo command",
					zap.String("command", op.Operation),
					zap.String("collection", op.Collection),
					zap.Int64("duration_ms", e.Duration.Milliseconds()),
				)
			}
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			op := finish(e.CommandFinishedEvent, true)
			logger.Debug("mongo command failed",
				zap.String("command", op.Operation),
				zap.String("collection", op.Collection),
				zap.String("failure", e.Failure),
			)
		},
	}
}

// commandCollection returns the collection a CRUD command targets. The
// driver puts it as the value of the command-name key, e.g. {find: "people"}.
// Admin commands such as ping carry a number there and yield "".
func commandCollection(cmd bson.Raw, name string) string {
	v, err := cmd.LookupErr(name)
	if err != nil {
		return ""
	}
	s, ok := v.StringValueOK()
	if !ok {
		return ""
	}
	return s
}
