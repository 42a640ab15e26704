package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Assignment records one person's role at one organization over a date range
type Assignment struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          string    `json:"ownerId"`
	PersonID         uuid.UUID `json:"personId"`
	OrganizationID   uuid.UUID `json:"organizationId"`
	PersonName       string    `json:"personName"`
	OrganizationName string    `json:"organizationName"`
	Title            string    `json:"title"`
	StartDate        *Date     `json:"startDate,omitempty"`
	EndDate          *Date     `json:"endDate,omitempty"`
	Current          bool      `json:"current"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Ref returns a reference to the assignment
func (a *Assignment) Ref() Reference {
	return Ref(KindAssignment, a.ID)
}

// Parent returns the id of the parent of the given kind
func (a *Assignment) Parent(kind EntityKind) uuid.UUID {
	if kind == KindPerson {
		return a.PersonID
	}
	return a.OrganizationID
}

// Conflicts reports whether other describes the same role for the same pair
// over an overlapping period. Titles compare case-insensitively.
func (a *Assignment) Conflicts(other *Assignment) bool {
	if a.ID == other.ID {
		return false
	}
	if a.PersonID != other.PersonID || a.OrganizationID != other.OrganizationID {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(other.Title)) {
		return false
	}
	return RangesOverlap(a.StartDate, a.EndDate, other.StartDate, other.EndDate)
}

// AssignmentInput represents input for creating an assignment
type AssignmentInput struct {
	PersonID       uuid.UUID `json:"personId" validate:"required"`
	OrganizationID uuid.UUID `json:"organizationId" validate:"required"`
	Title          string    `json:"title" validate:"required,notblank,max=200"`
	StartDate      *Date     `json:"startDate,omitempty"`
	EndDate        *Date     `json:"endDate,omitempty"`
	Current        bool      `json:"current"`
	Notes          string    `json:"notes,omitempty" validate:"max=10000"`
}

// AssignmentUpdateInput represents input for updating an assignment.
// PersonID and OrganizationID are accepted only to reject attempts to change them.
// A null startDate or endDate clears the stored date; an absent one keeps it.
type AssignmentUpdateInput struct {
	PersonID       *uuid.UUID   `json:"personId,omitempty"`
	OrganizationID *uuid.UUID   `json:"organizationId,omitempty"`
	Title          *string      `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	StartDate      OptionalDate `json:"startDate"`
	EndDate        OptionalDate `json:"endDate"`
	Current        *bool        `json:"current,omitempty"`
	Notes          *string      `json:"notes,omitempty" validate:"omitempty,max=10000"`
}

// AssignmentList represents a paginated list of assignments
type AssignmentList struct {
	Assignments []Assignment `json:"assignments"`
	TotalCount  int64        `json:"totalCount"`
	HasMore     bool         `json:"hasMore"`
}

// AssignmentWithOrganization is an assignment joined with its organization
type AssignmentWithOrganization struct {
	Assignment
	Organization OrganizationSummary `json:"organization"`
}

// AssignmentWithPerson is an assignment joined with its person
type AssignmentWithPerson struct {
	Assignment
	Person PersonSummary `json:"person"`
}
