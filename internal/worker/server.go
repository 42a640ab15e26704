package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
)

// Server is the worker server
type Server struct {
	logger    *zap.Logger
	config    *config.Config
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
}

// Dependencies holds the services the task handlers call into
type Dependencies struct {
	Reconciler Reconciler
	Sweeper    OrphanSweeper
	// Snapshots is nil when object storage is not configured
	Snapshots SnapshotWriter
}

// RedisOpt returns the asynq connection options for the configured Redis
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewServer creates a new worker server
func NewServer(logger *zap.Logger, cfg *config.Config, deps *Dependencies) (*Server, error) {
	redisOpt := RedisOpt(cfg.Redis)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: &asynqLogger{logger: logger.Named("asynq")},
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: &asynqLogger{logger: logger.Named("scheduler")},
	})

	return &Server{
		logger:    logger,
		config:    cfg,
		server:    server,
		mux:       NewMux(logger, deps),
		scheduler: scheduler,
	}, nil
}

// NewMux registers a handler for every task type the deps can serve
func NewMux(logger *zap.Logger, deps *Dependencies) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	if deps.Reconciler != nil {
		mux.HandleFunc(TypeRelationshipResync, NewResyncWorker(logger, deps.Reconciler).ProcessTask)
	}
	if deps.Sweeper != nil {
		mux.HandleFunc(TypeOrphanSweep, NewCleanupWorker(logger, deps.Sweeper).ProcessOrphanSweepTask)
	}
	if deps.Snapshots != nil {
		mux.HandleFunc(TypeSnapshotExport, NewExportWorker(logger, deps.Snapshots).ProcessTask)
	}

	return mux
}

// Start starts the worker server
func (s *Server) Start() error {
	if err := s.registerScheduledTasks(); err != nil {
		return fmt.Errorf("failed to register scheduled tasks: %w", err)
	}

	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	s.logger.Info("starting worker server",
		zap.Int("concurrency", s.config.Worker.Concurrency),
		zap.String("orphan_sweep_cron", s.config.Worker.OrphanSweepCron),
	)

	return s.server.Run(s.mux)
}

// Stop stops the worker server
func (s *Server) Stop() {
	s.server.Shutdown()
	s.scheduler.Shutdown()
}

// registerScheduledTasks registers periodic tasks with the scheduler
func (s *Server) registerScheduledTasks() error {
	if s.config.Worker.OrphanSweepCron == "" {
		return nil
	}
	payload, err := json.Marshal(OrphanSweepPayload{DryRun: false})
	if err != nil {
		return err
	}
	_, err = s.scheduler.Register(
		s.config.Worker.OrphanSweepCron,
		asynq.NewTask(TypeOrphanSweep, payload),
		asynq.Queue("low"),
	)
	if err != nil {
		return fmt.Errorf("failed to register orphan sweep task: %w", err)
	}
	return nil
}

// asynqLogger adapts zap.Logger to asynq.Logger
type asynqLogger struct {
	logger *zap.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
