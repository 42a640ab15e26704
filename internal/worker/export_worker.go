package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeSnapshotExport is the task type for owner snapshot exports
const TypeSnapshotExport = "exports:snapshot"

// SnapshotExportPayload is the payload for snapshot export tasks
type SnapshotExportPayload struct {
	OwnerID  string    `json:"ownerId"`
	ExportID uuid.UUID `json:"exportId"`
}

// NewSnapshotExportTask creates a snapshot export task
func NewSnapshotExportTask(payload *SnapshotExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot export payload: %w", err)
	}
	return asynq.NewTask(TypeSnapshotExport, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// SnapshotWriter writes an owner snapshot to object storage
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, ownerID string, exportID uuid.UUID) error
}

// ExportWorker handles export tasks
type ExportWorker struct {
	logger *zap.Logger
	writer SnapshotWriter
}

// NewExportWorker creates a new export worker
func NewExportWorker(logger *zap.Logger, writer SnapshotWriter) *ExportWorker {
	return &ExportWorker{
		logger: logger.Named("export"),
		writer: writer,
	}
}

// ProcessTask processes a snapshot export task
func (w *ExportWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload SnapshotExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot export payload: %w: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("processing snapshot export",
		zap.String("owner_id", payload.OwnerID),
		zap.String("export_id", payload.ExportID.String()),
	)

	if err := w.writer.WriteSnapshot(ctx, payload.OwnerID, payload.ExportID); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
