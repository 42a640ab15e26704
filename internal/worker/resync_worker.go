package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// TypeRelationshipResync is the task type for retrying a partial sweep
const TypeRelationshipResync = "relationships:resync"

// ResyncPayload is the payload for resync tasks
type ResyncPayload struct {
	OwnerID  string            `json:"ownerId"`
	Kind     domain.EntityKind `json:"kind"`
	EntityID uuid.UUID         `json:"entityId"`
}

// NewResyncTask creates a resync task
func NewResyncTask(payload *ResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resync payload: %w", err)
	}
	return asynq.NewTask(TypeRelationshipResync, data, asynq.MaxRetry(5), asynq.Timeout(5*time.Minute)), nil
}

// Reconciler repairs an entity's mirrors
type Reconciler interface {
	Reconcile(ctx context.Context, ownerID string, kind domain.EntityKind, id uuid.UUID) (*domain.SyncResult, error)
}

// ResyncWorker reconciles entities whose sweep left stale mirrors
type ResyncWorker struct {
	logger     *zap.Logger
	reconciler Reconciler
}

// NewResyncWorker creates a new resync worker
func NewResyncWorker(logger *zap.Logger, reconciler Reconciler) *ResyncWorker {
	return &ResyncWorker{
		logger:     logger.Named("resync"),
		reconciler: reconciler,
	}
}

// ProcessTask processes a resync task. An entity deleted in the meantime is
// done; counterparts that still fail return an error so the task is retried.
func (w *ResyncWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal resync payload: %w: %w", err, asynq.SkipRetry)
	}
	if !payload.Kind.IsNode() || payload.EntityID == uuid.Nil {
		return fmt.Errorf("invalid resync target %s:%s: %w", payload.Kind, payload.EntityID, asynq.SkipRetry)
	}

	log := w.logger.With(
		zap.String("owner_id", payload.OwnerID),
		zap.String("kind", string(payload.Kind)),
		zap.String("entity_id", payload.EntityID.String()),
	)

	result, err := w.reconciler.Reconcile(ctx, payload.OwnerID, payload.Kind, payload.EntityID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Info("resync target no longer exists")
			return nil
		}
		return fmt.Errorf("failed to reconcile: %w", err)
	}
	if result.HasFailures() {
		log.Warn("resync left unsynced counterparts", zap.Int("failures", len(result.Failures)))
		return result.Err()
	}

	log.Info("resync completed", zap.Int("changes", result.Diff.Changes()))
	return nil
}
