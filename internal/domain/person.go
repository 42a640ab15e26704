package domain

import (
	"time"

	"github.com/google/uuid"
)

// Person is a contact that can be related to organizations
type Person struct {
	ID             uuid.UUID          `json:"id"`
	OwnerID        string             `json:"ownerId"`
	Name           string             `json:"name"`
	Email          string             `json:"email,omitempty"`
	Phone          string             `json:"phone,omitempty"`
	LinkedInUserID string             `json:"linkedinUserId,omitempty"`
	GitHubUserID   string             `json:"githubUserId,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Organizations  []RelationshipEdge `json:"organizations"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Ref returns a reference to the person
func (p *Person) Ref() Reference {
	return Ref(KindPerson, p.ID)
}

// Node returns the relationship view of the person
func (p *Person) Node() *Node {
	return &Node{
		Ref:     p.Ref(),
		OwnerID: p.OwnerID,
		Name:    p.Name,
		Edges:   p.Organizations,
		Version: p.Version,
	}
}

// Summary returns the projection joined onto assignment lookups
func (p *Person) Summary() PersonSummary {
	return PersonSummary{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone}
}

// PersonSummary is the person side of an assignment lookup
type PersonSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}

// PersonInput represents input for creating a person
type PersonInput struct {
	Name           string      `json:"name" validate:"required,notblank,max=200"`
	Email          string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string      `json:"phone,omitempty" validate:"max=50"`
	LinkedInUserID string      `json:"linkedinUserId,omitempty" validate:"max=200"`
	GitHubUserID   string      `json:"githubUserId,omitempty" validate:"max=200"`
	Notes          string      `json:"notes,omitempty" validate:"max=10000"`
	Organizations  []EdgeInput `json:"organizations,omitempty" validate:"dive"`
}

// PersonUpdateInput represents input for updating a person.
// A nil Organizations leaves the edge list unchanged; an empty slice clears it.
type PersonUpdateInput struct {
	Name           *string      `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Email          *string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string      `json:"phone,omitempty" validate:"omitempty,max=50"`
	LinkedInUserID *string      `json:"linkedinUserId,omitempty" validate:"omitempty,max=200"`
	GitHubUserID   *string      `json:"githubUserId,omitempty" validate:"omitempty,max=200"`
	Notes          *string      `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Organizations  *[]EdgeInput `json:"organizations,omitempty" validate:"omitempty,dive"`
	Version        *int64       `json:"version,omitempty"`
}

// PersonList represents a paginated list of people
type PersonList struct {
	People     []Person `json:"people"`
	TotalCount int64    `json:"totalCount"`
	HasMore    bool     `json:"hasMore"`
}
