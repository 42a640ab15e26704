package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// PersonService handles person operations
type PersonService struct {
	personRepo    PersonRepository
	relationships *RelationshipService
	logger        *zap.Logger
}

// NewPersonService creates a new person service
func NewPersonService(logger *zap.Logger, personRepo PersonRepository, relationships *RelationshipService) *PersonService {
	return &PersonService{
		personRepo:    personRepo,
		relationships: relationships,
		logger:        logger.Named("people"),
	}
}

// Create creates a person and mirrors any initial relationships onto the
// referenced organizations
func (s *PersonService) Create(ctx context.Context, ownerID string, input *domain.PersonInput) (*domain.Person, []domain.SyncFailure, error) {
	if err := validateInput(input); err != nil {
		return nil, nil, err
	}

	edges, err := s.relationships.ResolveEdges(ctx, ownerID, domain.KindPerson, input.Organizations)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	person := &domain.Person{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Phone:          strings.TrimSpace(input.Phone),
		LinkedInUserID: strings.TrimSpace(input.LinkedInUserID),
		GitHubUserID:   strings.TrimSpace(input.GitHubUserID),
		Notes:          input.Notes,
		Organizations:  edges,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.personRepo.Create(ctx, person); err != nil {
		return nil, nil, fmt.Errorf("failed to create person: %w", err)
	}

	diff := domain.DiffEdges(nil, edges)
	failures := s.relationships.MirrorEdges(ctx, person.Node(), diff)
	s.relationships.AfterMutation(ctx, ownerID, person.Ref(), failures, domain.EdgeEvents(ownerID, person.Ref(), diff)...)

	return person, failures, nil
}

// Get retrieves a person by ID
func (s *PersonService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Person, error) {
	return s.personRepo.GetByID(ctx, ownerID, id)
}

// List retrieves a page of the owner's people
func (s *PersonService) List(ctx context.Context, ownerID string, limit, offset int) (*domain.PersonList, error) {
	limit, offset = clampPage(limit, offset)
	return s.personRepo.List(ctx, ownerID, limit, offset)
}

// Update applies scalar changes and, when input.Organizations is set,
// replaces the relationship list
func (s *PersonService) Update(ctx context.Context, ownerID string, id uuid.UUID, input *domain.PersonUpdateInput) (*domain.Person, []domain.SyncFailure, error) {
	person, err := s.personRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkVersion(domain.KindPerson, person.Version, input.Version); err != nil {
		return nil, nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, nil, err
	}

	oldName := person.Name
	opts := domain.UpdateOptions{ExpectedVersion: input.Version}
	var diff domain.EdgeDiff

	if input.Organizations != nil {
		edges, err := s.relationships.ResolveEdges(ctx, ownerID, domain.KindPerson, *input.Organizations)
		if err != nil {
			return nil, nil, err
		}
		diff = domain.DiffEdges(person.Organizations, edges)
		person.Organizations = edges
		opts.ReplaceEdges = true
	}

	if input.Name != nil {
		person.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		person.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		person.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.LinkedInUserID != nil {
		person.LinkedInUserID = strings.TrimSpace(*input.LinkedInUserID)
	}
	if input.GitHubUserID != nil {
		person.GitHubUserID = strings.TrimSpace(*input.GitHubUserID)
	}
	if input.Notes != nil {
		person.Notes = *input.Notes
	}
	person.UpdatedAt = time.Now().UTC()

	if err := s.personRepo.Update(ctx, person, opts); err != nil {
		return nil, nil, fmt.Errorf("failed to update person: %w", err)
	}

	failures := s.relationships.MirrorEdges(ctx, person.Node(), diff)
	events := domain.EdgeEvents(ownerID, person.Ref(), diff)

	if person.Name != oldName {
		_, renameFailures := s.relationships.propagateName(ctx, ownerID, person.Ref(), person.Name)
		failures = append(failures, renameFailures...)
		ev := domain.NewRelationshipEvent(domain.EventEntityRenamed, ownerID, person.Ref())
		ev.Name = person.Name
		events = append(events, ev)
	}

	s.relationships.AfterMutation(ctx, ownerID, person.Ref(), failures, events...)
	return person, failures, nil
}

// SyncRelationships replaces the person's organization list and returns the
// reloaded person
func (s *PersonService) SyncRelationships(ctx context.Context, ownerID string, id uuid.UUID, edges []domain.EdgeInput, expectedVersion *int64) (*domain.Person, []domain.SyncFailure, error) {
	if err := validateEdges(edges); err != nil {
		return nil, nil, err
	}
	result, err := s.relationships.SynchronizeRelationships(ctx, ownerID, domain.KindPerson, id, edges, expectedVersion)
	if err != nil {
		return nil, nil, err
	}
	person, err := s.personRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	return person, result.Failures, nil
}

// Reconcile repairs the person's mirrors
func (s *PersonService) Reconcile(ctx context.Context, ownerID string, id uuid.UUID) (*domain.SyncResult, error) {
	return s.relationships.Reconcile(ctx, ownerID, domain.KindPerson, id)
}

// Delete deletes a person and then every edge and assignment that references it
func (s *PersonService) Delete(ctx context.Context, ownerID string, id uuid.UUID) (int64, error) {
	if err := s.personRepo.Delete(ctx, ownerID, id); err != nil {
		return 0, err
	}
	s.logger.Info("person deleted",
		zap.String("owner_id", ownerID),
		zap.String("person_id", id.String()),
	)
	return s.relationships.CascadeDeleteReferences(ctx, ownerID, domain.KindPerson, id)
}
