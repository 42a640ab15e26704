package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a company or group that people are related to
type Organization struct {
	ID        uuid.UUID          `json:"id"`
	OwnerID   string             `json:"ownerId"`
	Name      string             `json:"name"`
	Industry  string             `json:"industry,omitempty"`
	Website   string             `json:"website,omitempty"`
	People    []RelationshipEdge `json:"people"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Ref returns a reference to the organization
func (o *Organization) Ref() Reference {
	return Ref(KindOrganization, o.ID)
}

// Node returns the relationship view of the organization
func (o *Organization) Node() *Node {
	return &Node{
		Ref:     o.Ref(),
		OwnerID: o.OwnerID,
		Name:    o.Name,
		Edges:   o.People,
		Version: o.Version,
	}
}

// Summary returns the projection joined onto assignment lookups
func (o *Organization) Summary() OrganizationSummary {
	return OrganizationSummary{ID: o.ID, Name: o.Name, Industry: o.Industry, Website: o.Website}
}

// OrganizationSummary is the organization side of an assignment lookup
type OrganizationSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Industry string    `json:"industry,omitempty"`
	Website  string    `json:"website,omitempty"`
}

// OrganizationInput represents input for creating an organization
type OrganizationInput struct {
	Name     string      `json:"name" validate:"required,notblank,max=200"`
	Industry string      `json:"industry,omitempty" validate:"max=200"`
	Website  string      `json:"website,omitempty" validate:"omitempty,url"`
	People   []EdgeInput `json:"people,omitempty" validate:"dive"`
}

// OrganizationUpdateInput represents input for updating an organization.
// A nil People leaves the edge list unchanged; an empty slice clears it.
type OrganizationUpdateInput struct {
	Name     *string      `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Industry *string      `json:"industry,omitempty" validate:"omitempty,max=200"`
	Website  *string      `json:"website,omitempty" validate:"omitempty,url"`
	People   *[]EdgeInput `json:"people,omitempty" validate:"omitempty,dive"`
	Version  *int64       `json:"version,omitempty"`
}

// OrganizationList represents a paginated list of organizations
type OrganizationList struct {
	Organizations []Organization `json:"organizations"`
	TotalCount    int64          `json:"totalCount"`
	HasMore       bool           `json:"hasMore"`
}
