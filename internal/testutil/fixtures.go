package testutil

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// NewOrganizationInput creates a valid organization input with fake values.
func NewOrganizationInput(people ...domain.EdgeInput) *domain.OrganizationInput {
	return &domain.OrganizationInput{
		Name:     gofakeit.Company(),
		Industry: gofakeit.JobDescriptor(),
		Website:  "https://" + gofakeit.DomainName(),
		People:   people,
	}
}

// NewPersonInput creates a valid person input with fake values.
func NewPersonInput(orgs ...domain.EdgeInput) *domain.PersonInput {
	return &domain.PersonInput{
		Name:          gofakeit.Name(),
		Email:         gofakeit.Email(),
		Phone:         gofakeit.Phone(),
		GitHubUserID:  gofakeit.Username(),
		Notes:         gofakeit.Sentence(8),
		Organizations: orgs,
	}
}

// NewAssignmentInput creates an assignment input for the given pair.
func NewAssignmentInput(personID, orgID uuid.UUID) *domain.AssignmentInput {
	return &domain.AssignmentInput{
		PersonID:       personID,
		OrganizationID: orgID,
		Title:          gofakeit.JobTitle(),
		StartDate:      DatePtr(2020, time.January, 1),
		Current:        true,
	}
}

// NewEdgeInput creates an edge input pointing at counterpartID.
func NewEdgeInput(counterpartID uuid.UUID, role string) domain.EdgeInput {
	return domain.EdgeInput{CounterpartID: counterpartID, Role: role}
}

// NewRegisterInput creates a registration with a random email and a valid password.
func NewRegisterInput() *domain.RegisterInput {
	return &domain.RegisterInput{
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 16),
		Name:     gofakeit.Name(),
	}
}

// NewTestOrganization creates a stored-looking organization owned by ownerID.
func NewTestOrganization(ownerID string) *domain.Organization {
	now := time.Now().UTC()
	return &domain.Organization{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      gofakeit.Company(),
		Industry:  gofakeit.JobDescriptor(),
		People:    []domain.RelationshipEdge{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestPerson creates a stored-looking person owned by ownerID.
func NewTestPerson(ownerID string) *domain.Person {
	now := time.Now().UTC()
	return &domain.Person{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Name:          gofakeit.Name(),
		Email:         gofakeit.Email(),
		Organizations: []domain.RelationshipEdge{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DatePtr returns a pointer to a calendar date.
func DatePtr(year int, month time.Month, day int) *domain.Date {
	return domain.DatePtr(domain.NewDate(year, month, day))
}
