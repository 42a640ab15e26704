package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
	"github.com/rolodex/rolodex/api/internal/validator"
)

// Pagination bounds for list endpoints
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// OrganizationService handles organization operations
type OrganizationService struct {
	orgRepo       OrganizationRepository
	relationships *RelationshipService
	logger        *zap.Logger
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(logger *zap.Logger, orgRepo OrganizationRepository, relationships *RelationshipService) *OrganizationService {
	return &OrganizationService{
		orgRepo:       orgRepo,
		relationships: relationships,
		logger:        logger.Named("organizations"),
	}
}

// Create creates an organization and mirrors any initial relationships onto
// the referenced people. The organization is returned even when some mirrors
// failed; those are listed in the returned failures.
func (s *OrganizationService) Create(ctx context.Context, ownerID string, input *domain.OrganizationInput) (*domain.Organization, []domain.SyncFailure, error) {
	if err := validateInput(input); err != nil {
		return nil, nil, err
	}

	edges, err := s.relationships.ResolveEdges(ctx, ownerID, domain.KindOrganization, input.People)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(input.Name),
		Industry:  strings.TrimSpace(input.Industry),
		Website:   strings.TrimSpace(input.Website),
		People:    edges,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, nil, fmt.Errorf("failed to create organization: %w", err)
	}

	diff := domain.DiffEdges(nil, edges)
	failures := s.relationships.MirrorEdges(ctx, org.Node(), diff)
	s.relationships.AfterMutation(ctx, ownerID, org.Ref(), failures, domain.EdgeEvents(ownerID, org.Ref(), diff)...)

	return org, failures, nil
}

// Get retrieves an organization by ID
func (s *OrganizationService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Organization, error) {
	return s.orgRepo.GetByID(ctx, ownerID, id)
}

// List retrieves a page of the owner's organizations
func (s *OrganizationService) List(ctx context.Context, ownerID string, limit, offset int) (*domain.OrganizationList, error) {
	limit, offset = clampPage(limit, offset)
	return s.orgRepo.List(ctx, ownerID, limit, offset)
}

// Update applies scalar changes and, when input.People is set, replaces the
// relationship list. Steps run in this order: load, version check, validate,
// resolve edges, primary write, mirror sweep, name propagation.
func (s *OrganizationService) Update(ctx context.Context, ownerID string, id uuid.UUID, input *domain.OrganizationUpdateInput) (*domain.Organization, []domain.SyncFailure, error) {
	org, err := s.orgRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkVersion(domain.KindOrganization, org.Version, input.Version); err != nil {
		return nil, nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, nil, err
	}

	oldName := org.Name
	opts := domain.UpdateOptions{ExpectedVersion: input.Version}
	var diff domain.EdgeDiff

	if input.People != nil {
		edges, err := s.relationships.ResolveEdges(ctx, ownerID, domain.KindOrganization, *input.People)
		if err != nil {
			return nil, nil, err
		}
		diff = domain.DiffEdges(org.People, edges)
		org.People = edges
		opts.ReplaceEdges = true
	}

	if input.Name != nil {
		org.Name = strings.TrimSpace(*input.Name)
	}
	if input.Industry != nil {
		org.Industry = strings.TrimSpace(*input.Industry)
	}
	if input.Website != nil {
		org.Website = strings.TrimSpace(*input.Website)
	}
	org.UpdatedAt = time.Now().UTC()

	if err := s.orgRepo.Update(ctx, org, opts); err != nil {
		return nil, nil, fmt.Errorf("failed to update organization: %w", err)
	}

	failures := s.relationships.MirrorEdges(ctx, org.Node(), diff)
	events := domain.EdgeEvents(ownerID, org.Ref(), diff)

	if org.Name != oldName {
		_, renameFailures := s.relationships.propagateName(ctx, ownerID, org.Ref(), org.Name)
		failures = append(failures, renameFailures...)
		ev := domain.NewRelationshipEvent(domain.EventEntityRenamed, ownerID, org.Ref())
		ev.Name = org.Name
		events = append(events, ev)
	}

	s.relationships.AfterMutation(ctx, ownerID, org.Ref(), failures, events...)
	return org, failures, nil
}

// SyncRelationships replaces the organization's people list and returns the
// reloaded organization.
func (s *OrganizationService) SyncRelationships(ctx context.Context, ownerID string, id uuid.UUID, edges []domain.EdgeInput, expectedVersion *int64) (*domain.Organization, []domain.SyncFailure, error) {
	if err := validateEdges(edges); err != nil {
		return nil, nil, err
	}
	result, err := s.relationships.SynchronizeRelationships(ctx, ownerID, domain.KindOrganization, id, edges, expectedVersion)
	if err != nil {
		return nil, nil, err
	}
	org, err := s.orgRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	return org, result.Failures, nil
}

// Reconcile repairs the organization's mirrors
func (s *OrganizationService) Reconcile(ctx context.Context, ownerID string, id uuid.UUID) (*domain.SyncResult, error) {
	return s.relationships.Reconcile(ctx, ownerID, domain.KindOrganization, id)
}

// Delete deletes an organization and then every edge and assignment that
// references it. It returns the number of references removed; a
// PARTIAL_SYNC_FAILURE error lists any that remain.
func (s *OrganizationService) Delete(ctx context.Context, ownerID string, id uuid.UUID) (int64, error) {
	if err := s.orgRepo.Delete(ctx, ownerID, id); err != nil {
		return 0, err
	}
	s.logger.Info("organization deleted",
		zap.String("owner_id", ownerID),
		zap.String("organization_id", id.String()),
	)
	return s.relationships.CascadeDeleteReferences(ctx, ownerID, domain.KindOrganization, id)
}

func validateInput(v any) error {
	if err := validator.Validate(v); err != nil {
		return apperrors.Validation(err.Error()).WithError(err)
	}
	return nil
}

func validateEdges(edges []domain.EdgeInput) error {
	for i := range edges {
		if err := validator.Validate(&edges[i]); err != nil {
			return apperrors.Validation(fmt.Sprintf("edges[%d]: %s", i, err.Error())).WithError(err)
		}
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
