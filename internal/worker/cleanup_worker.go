package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// TypeOrphanSweep is the task type for the periodic orphan sweep
const TypeOrphanSweep = "relationships:orphan_sweep"

// OrphanSweepPayload is the payload for orphan sweep tasks
type OrphanSweepPayload struct {
	DryRun bool `json:"dryRun"`
}

// NewOrphanSweepTask creates an orphan sweep task
func NewOrphanSweepTask(payload *OrphanSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal orphan sweep payload: %w", err)
	}
	return asynq.NewTask(TypeOrphanSweep, data, asynq.MaxRetry(3), asynq.Timeout(1*time.Hour)), nil
}

// OrphanSweeper removes edges and assignments whose counterpart is gone
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, dryRun bool) (*domain.OrphanReport, error)
}

// CleanupWorker handles orphan sweep tasks
type CleanupWorker struct {
	logger  *zap.Logger
	sweeper OrphanSweeper
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(logger *zap.Logger, sweeper OrphanSweeper) *CleanupWorker {
	return &CleanupWorker{
		logger:  logger.Named("cleanup"),
		sweeper: sweeper,
	}
}

// ProcessOrphanSweepTask processes an orphan sweep task. Removals that failed
// are logged and left for the next run.
func (w *CleanupWorker) ProcessOrphanSweepTask(ctx context.Context, t *asynq.Task) error {
	var payload OrphanSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal orphan sweep payload: %w", err)
	}

	w.logger.Info("processing orphan sweep", zap.Bool("dry_run", payload.DryRun))

	report, err := w.sweeper.SweepOrphans(ctx, payload.DryRun)
	if err != nil {
		return fmt.Errorf("failed to sweep orphans: %w", err)
	}

	w.logger.Info("orphan sweep completed",
		zap.Bool("dry_run", report.DryRun),
		zap.Int("nodes_scanned", report.NodesScanned),
		zap.Int("assignments_scanned", report.AssignmentsScanned),
		zap.Int("dangling_edges", len(report.DanglingEdges)),
		zap.Int("orphan_assignments", len(report.OrphanAssignments)),
		zap.Int("edges_removed", report.EdgesRemoved),
		zap.Int("assignments_removed", report.AssignmentsRemoved),
		zap.Int("failures", len(report.Failures)),
	)
	return nil
}
