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
)

// AssignmentService manages assignments, the normalized record of a person's
// role at an organization. It guarantees both parents exist under the owner
// at creation, keeps the date range ordered, rejects overlapping duplicates
// and never lets an assignment move to another parent.
type AssignmentService struct {
	assignmentRepo AssignmentRepository
	personRepo     PersonRepository
	orgRepo        OrganizationRepository
	cache          LookupCache
	logger         *zap.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	logger *zap.Logger,
	assignmentRepo AssignmentRepository,
	personRepo PersonRepository,
	orgRepo OrganizationRepository,
) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		personRepo:     personRepo,
		orgRepo:        orgRepo,
		logger:         logger.Named("assignments"),
	}
}

// SetLookupCache sets the cache for assignment lookups
func (s *AssignmentService) SetLookupCache(c LookupCache) {
	s.cache = c
}

// Create creates an assignment
func (s *AssignmentService) Create(ctx context.Context, ownerID string, input *domain.AssignmentInput) (*domain.Assignment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	person, err := s.personRepo.GetByID(ctx, ownerID, input.PersonID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Validation("person not found")
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	org, err := s.orgRepo.GetByID(ctx, ownerID, input.OrganizationID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Validation("organization not found")
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	if !domain.ValidRange(input.StartDate, input.EndDate) {
		return nil, domain.InvalidDateRange(domain.KindOrganization, org.Name)
	}

	now := time.Now().UTC()
	a := &domain.Assignment{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		PersonID:         person.ID,
		OrganizationID:   org.ID,
		PersonName:       person.Name,
		OrganizationName: org.Name,
		Title:            strings.TrimSpace(input.Title),
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		Current:          input.Current,
		Notes:            input.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.checkDuplicate(ctx, a); err != nil {
		return nil, err
	}

	if err := s.assignmentRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	s.invalidate(ctx, ownerID)
	return a, nil
}

// Get retrieves an assignment by ID
func (s *AssignmentService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Assignment, error) {
	return s.assignmentRepo.GetByID(ctx, ownerID, id)
}

// List retrieves a page of the owner's assignments
func (s *AssignmentService) List(ctx context.Context, ownerID string, limit, offset int) (*domain.AssignmentList, error) {
	limit, offset = clampPage(limit, offset)
	return s.assignmentRepo.List(ctx, ownerID, limit, offset)
}

// Update changes the mutable fields of an assignment. The person and
// organization are fixed at creation.
func (s *AssignmentService) Update(ctx context.Context, ownerID string, id uuid.UUID, input *domain.AssignmentUpdateInput) (*domain.Assignment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	a, err := s.assignmentRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if input.PersonID != nil && *input.PersonID != a.PersonID {
		return nil, apperrors.Validation("personId cannot be changed")
	}
	if input.OrganizationID != nil && *input.OrganizationID != a.OrganizationID {
		return nil, apperrors.Validation("organizationId cannot be changed")
	}

	if input.Title != nil {
		a.Title = strings.TrimSpace(*input.Title)
	}
	a.StartDate = input.StartDate.Apply(a.StartDate)
	a.EndDate = input.EndDate.Apply(a.EndDate)
	if input.Current != nil {
		a.Current = *input.Current
	}
	if input.Notes != nil {
		a.Notes = *input.Notes
	}

	if !domain.ValidRange(a.StartDate, a.EndDate) {
		return nil, domain.InvalidDateRange(domain.KindOrganization, a.OrganizationName)
	}
	if err := s.checkDuplicate(ctx, a); err != nil {
		return nil, err
	}

	a.UpdatedAt = time.Now().UTC()
	if err := s.assignmentRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	s.invalidate(ctx, ownerID)
	return a, nil
}

// Delete deletes an assignment
func (s *AssignmentService) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	if err := s.assignmentRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// ListByPerson returns the person's assignments joined with organization
// summaries. Rows whose organization is gone are skipped.
func (s *AssignmentService) ListByPerson(ctx context.Context, ownerID string, personID uuid.UUID) ([]domain.AssignmentWithOrganization, error) {
	key := "assignments:person:" + personID.String()
	var cached []domain.AssignmentWithOrganization
	if s.cacheGet(ctx, ownerID, key, &cached) {
		return cached, nil
	}

	if _, err := s.personRepo.GetByID(ctx, ownerID, personID); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.ListByParent(ctx, ownerID, domain.Ref(domain.KindPerson, personID))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	orgs, err := s.orgRepo.GetMany(ctx, ownerID, parentIDs(assignments, domain.KindOrganization))
	if err != nil {
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}
	summaries := make(map[uuid.UUID]domain.OrganizationSummary, len(orgs))
	for i := range orgs {
		summaries[orgs[i].ID] = orgs[i].Summary()
	}

	result := make([]domain.AssignmentWithOrganization, 0, len(assignments))
	for _, a := range assignments {
		summary, ok := summaries[a.OrganizationID]
		if !ok {
			s.logger.Warn("assignment references missing organization",
				zap.String("owner_id", ownerID),
				zap.String("assignment_id", a.ID.String()),
				zap.String("organization_id", a.OrganizationID.String()),
			)
			continue
		}
		result = append(result, domain.AssignmentWithOrganization{Assignment: a, Organization: summary})
	}

	s.cacheSet(ctx, ownerID, key, result)
	return result, nil
}

// ListByOrganization returns the organization's assignments joined with
// person summaries. Rows whose person is gone are skipped.
func (s *AssignmentService) ListByOrganization(ctx context.Context, ownerID string, orgID uuid.UUID) ([]domain.AssignmentWithPerson, error) {
	key := "assignments:organization:" + orgID.String()
	var cached []domain.AssignmentWithPerson
	if s.cacheGet(ctx, ownerID, key, &cached) {
		return cached, nil
	}

	if _, err := s.orgRepo.GetByID(ctx, ownerID, orgID); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.ListByParent(ctx, ownerID, domain.Ref(domain.KindOrganization, orgID))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	people, err := s.personRepo.GetMany(ctx, ownerID, parentIDs(assignments, domain.KindPerson))
	if err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}
	summaries := make(map[uuid.UUID]domain.PersonSummary, len(people))
	for i := range people {
		summaries[people[i].ID] = people[i].Summary()
	}

	result := make([]domain.AssignmentWithPerson, 0, len(assignments))
	for _, a := range assignments {
		summary, ok := summaries[a.PersonID]
		if !ok {
			s.logger.Warn("assignment references missing person",
				zap.String("owner_id", ownerID),
				zap.String("assignment_id", a.ID.String()),
				zap.String("person_id", a.PersonID.String()),
			)
			continue
		}
		result = append(result, domain.AssignmentWithPerson{Assignment: a, Person: summary})
	}

	s.cacheSet(ctx, ownerID, key, result)
	return result, nil
}

func (s *AssignmentService) checkDuplicate(ctx context.Context, a *domain.Assignment) error {
	existing, err := s.assignmentRepo.ListByPair(ctx, a.OwnerID, a.PersonID, a.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate assignment: %w", err)
	}
	for i := range existing {
		if a.Conflicts(&existing[i]) {
			return apperrors.Validation("duplicate assignment").
				WithDetail("conflictsWith", existing[i].ID.String())
		}
	}
	return nil
}

func (s *AssignmentService) cacheGet(ctx context.Context, ownerID, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, ownerID, key, dest)
	if err != nil {
		s.logger.Warn("lookup cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (s *AssignmentService) cacheSet(ctx context.Context, ownerID, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, ownerID, key, value); err != nil {
		s.logger.Warn("lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AssignmentService) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("failed to invalidate lookup cache", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func parentIDs(assignments []domain.Assignment, kind domain.EntityKind) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	ids := make([]uuid.UUID, 0, len(assignments))
	for i := range assignments {
		id := assignments[i].Parent(kind)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
