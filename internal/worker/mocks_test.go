package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// MockReconciler is a mock implementation of Reconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, ownerID string, kind domain.EntityKind, id uuid.UUID) (*domain.SyncResult, error) {
	args := m.Called(ctx, ownerID, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncResult), args.Error(1)
}

// MockSweeper is a mock implementation of OrphanSweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepOrphans(ctx context.Context, dryRun bool) (*domain.OrphanReport, error) {
	args := m.Called(ctx, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrphanReport), args.Error(1)
}

// MockSnapshotWriter is a mock implementation of SnapshotWriter
type MockSnapshotWriter struct {
	mock.Mock
}

func (m *MockSnapshotWriter) WriteSnapshot(ctx context.Context, ownerID string, exportID uuid.UUID) error {
	args := m.Called(ctx, ownerID, exportID)
	return args.Error(0)
}

// MockTaskClient is a mock implementation of taskClient
type MockTaskClient struct {
	mock.Mock
}

func (m *MockTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
