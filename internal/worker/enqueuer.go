package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// taskClient is the part of asynq.Client the enqueuer needs
type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer queues background work from the API process
type Enqueuer struct {
	client      taskClient
	resyncDelay time.Duration
}

// NewEnqueuer creates an enqueuer. Resync tasks run after resyncDelay.
func NewEnqueuer(client taskClient, resyncDelay time.Duration) *Enqueuer {
	return &Enqueuer{client: client, resyncDelay: resyncDelay}
}

// ScheduleResync queues a delayed reconcile of the entity. A resync already
// queued for the same entity absorbs the request.
func (e *Enqueuer) ScheduleResync(ctx context.Context, ownerID string, ref domain.Reference) error {
	task, err := NewResyncTask(&ResyncPayload{OwnerID: ownerID, Kind: ref.Kind, EntityID: ref.ID})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue("default"),
		asynq.ProcessIn(e.resyncDelay),
		asynq.TaskID(resyncTaskID(ownerID, ref)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue resync: %w", err)
	}
	return nil
}

// EnqueueExport queues a snapshot export
func (e *Enqueuer) EnqueueExport(ctx context.Context, ownerID string, exportID uuid.UUID) error {
	task, err := NewSnapshotExportTask(&SnapshotExportPayload{OwnerID: ownerID, ExportID: exportID})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
		return fmt.Errorf("failed to enqueue export: %w", err)
	}
	return nil
}

func resyncTaskID(ownerID string, ref domain.Reference) string {
	return fmt.Sprintf("resync:%s:%s", ownerID, ref)
}
