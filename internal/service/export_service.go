package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// ExportService writes owner snapshots to object storage and hands out
// download links
type ExportService struct {
	orgRepo        OrganizationRepository
	personRepo     PersonRepository
	assignmentRepo AssignmentRepository
	store          SnapshotStore
	scheduler      ExportScheduler
	logger         *zap.Logger
}

// NewExportService creates a new export service. A nil store disables exports.
func NewExportService(
	logger *zap.Logger,
	orgRepo OrganizationRepository,
	personRepo PersonRepository,
	assignmentRepo AssignmentRepository,
	store SnapshotStore,
) *ExportService {
	return &ExportService{
		orgRepo:        orgRepo,
		personRepo:     personRepo,
		assignmentRepo: assignmentRepo,
		store:          store,
		logger:         logger.Named("exports"),
	}
}

// SetScheduler sets the queue used to write snapshots in the background.
// Without one, RequestExport writes the snapshot inline.
func (s *ExportService) SetScheduler(scheduler ExportScheduler) {
	s.scheduler = scheduler
}

// RequestExport starts a snapshot export for the owner
func (s *ExportService) RequestExport(ctx context.Context, ownerID string) (*domain.ExportStatus, error) {
	if s.store == nil {
		return nil, apperrors.BadRequest("exports are not configured")
	}
	exportID := uuid.New()

	if s.scheduler == nil {
		if err := s.WriteSnapshot(ctx, ownerID, exportID); err != nil {
			return nil, err
		}
		return s.GetExport(ctx, ownerID, exportID)
	}

	if err := s.scheduler.EnqueueExport(ctx, ownerID, exportID); err != nil {
		return nil, fmt.Errorf("failed to enqueue export: %w", err)
	}
	return &domain.ExportStatus{ID: exportID, Status: domain.ExportPending}, nil
}

// WriteSnapshot collects the owner's records and stores them as JSON
func (s *ExportService) WriteSnapshot(ctx context.Context, ownerID string, exportID uuid.UUID) error {
	if s.store == nil {
		return apperrors.BadRequest("exports are not configured")
	}

	orgs, err := s.orgRepo.List(ctx, ownerID, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}
	people, err := s.personRepo.List(ctx, ownerID, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}
	assignments, err := s.assignmentRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list assignments: %w", err)
	}

	snapshot := domain.Snapshot{
		ExportID:      exportID,
		OwnerID:       ownerID,
		ExportedAt:    time.Now().UTC(),
		Organizations: orgs.Organizations,
		People:        people.People,
		Assignments:   assignments,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := domain.ExportObjectKey(ownerID, exportID)
	if err := s.store.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.logger.Info("snapshot exported",
		zap.String("owner_id", ownerID),
		zap.String("export_id", exportID.String()),
		zap.Int("organizations", len(snapshot.Organizations)),
		zap.Int("people", len(snapshot.People)),
		zap.Int("assignments", len(snapshot.Assignments)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// GetExport returns a download link for a finished export. A pending or
// unknown export is NOT_FOUND.
func (s *ExportService) GetExport(ctx context.Context, ownerID string, exportID uuid.UUID) (*domain.ExportStatus, error) {
	if s.store == nil {
		return nil, apperrors.BadRequest("exports are not configured")
	}
	key := domain.ExportObjectKey(ownerID, exportID)

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check export: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("export")
	}

	url, expiresAt, err := s.store.PresignedURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign export URL: %w", err)
	}
	return &domain.ExportStatus{
		ID:        exportID,
		Status:    domain.ExportReady,
		URL:       url,
		ExpiresAt: &expiresAt,
	}, nil
}
