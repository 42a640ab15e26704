// Package mongo implements the Rolodex repositories on MongoDB.
//
// Organizations and people each embed their relationship edges, so every
// relationship write is a single-document update: guarded $push, $pull,
// positional "$" updates and arrayFilters for cached-name rewrites. Nothing
// here relies on multi-document transactions.
package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// Collection names
const (
	CollectionOrganizations = "organizations"
	CollectionPeople        = "people"
	CollectionAssignments   = "assignments"
	CollectionUsers         = "users"
)

type edgeDoc struct {
	CounterpartID   string     `bson:"counterpart_id"`
	CounterpartName string     `bson:"counterpart_name"`
	Role            string     `bson:"role"`
	StartDate       *time.Time `bson:"start_date"`
	EndDate         *time.Time `bson:"end_date"`
}

func toEdgeDoc(e domain.RelationshipEdge) edgeDoc {
	return edgeDoc{
		CounterpartID:   e.CounterpartID.String(),
		CounterpartName: e.CounterpartName,
		Role:            e.Role,
		StartDate:       domain.TimeOf(e.StartDate),
		EndDate:         domain.TimeOf(e.EndDate),
	}
}

func toEdgeDocs(edges []domain.RelationshipEdge) []edgeDoc {
	out := make([]edgeDoc, len(edges))
	for i, e := range edges {
		out[i] = toEdgeDoc(e)
	}
	return out
}

func (d edgeDoc) edge(ids *idParser) domain.RelationshipEdge {
	return domain.RelationshipEdge{
		CounterpartID:   ids.parse("counterpart_id", d.CounterpartID),
		CounterpartName: d.CounterpartName,
		Role:            d.Role,
		StartDate:       domain.DateFromTime(d.StartDate),
		EndDate:         domain.DateFromTime(d.EndDate),
	}
}

func fromEdgeDocs(ids *idParser, docs []edgeDoc) []domain.RelationshipEdge {
	out := make([]domain.RelationshipEdge, len(docs))
	for i, d := range docs {
		out[i] = d.edge(ids)
	}
	return out
}

// nodeDoc decodes the relationship view of either collection
type nodeDoc struct {
	ID            string    `bson:"_id"`
	OwnerID       string    `bson:"owner_id"`
	Name          string    `bson:"name"`
	People        []edgeDoc `bson:"people,omitempty"`
	Organizations []edgeDoc `bson:"organizations,omitempty"`
	Version       int64     `bson:"version"`
}

func (d nodeDoc) node(kind domain.EntityKind) (*domain.Node, error) {
	edges := d.People
	if kind == domain.KindPerson {
		edges = d.Organizations
	}
	var ids idParser
	n := &domain.Node{
		Ref:     domain.Ref(kind, ids.parse("_id", d.ID)),
		OwnerID: d.OwnerID,
		Name:    d.Name,
		Edges:   fromEdgeDocs(&ids, edges),
		Version: d.Version,
	}
	if err := ids.check(kind, d.ID); err != nil {
		return nil, err
	}
	return n, nil
}

type organizationDoc struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Name      string    `bson:"name"`
	Industry  string    `bson:"industry"`
	Website   string    `bson:"website"`
	People    []edgeDoc `bson:"people"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toOrganizationDoc(o *domain.Organization) organizationDoc {
	return organizationDoc{
		ID:        o.ID.String(),
		OwnerID:   o.OwnerID,
		Name:      o.Name,
		Industry:  o.Industry,
		Website:   o.Website,
		People:    toEdgeDocs(o.People),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (d organizationDoc) organization() (*domain.Organization, error) {
	var ids idParser
	o := &domain.Organization{
		ID:        ids.parse("_id", d.ID),
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Industry:  d.Industry,
		Website:   d.Website,
		People:    fromEdgeDocs(&ids, d.People),
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if err := ids.check(domain.KindOrganization, d.ID); err != nil {
		return nil, err
	}
	return o, nil
}

type personDoc struct {
	ID             string    `bson:"_id"`
	OwnerID        string    `bson:"owner_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	Phone          string    `bson:"phone"`
	LinkedInUserID string    `bson:"linkedin_user_id"`
	GitHubUserID   string    `bson:"github_user_id"`
	Notes          string    `bson:"notes"`
	Organizations  []edgeDoc `bson:"organizations"`
	Version        int64     `bson:"version"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toPersonDoc(p *domain.Person) personDoc {
	return personDoc{
		ID:             p.ID.String(),
		OwnerID:        p.OwnerID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		LinkedInUserID: p.LinkedInUserID,
		GitHubUserID:   p.GitHubUserID,
		Notes:          p.Notes,
		Organizations:  toEdgeDocs(p.Organizations),
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (d personDoc) person() (*domain.Person, error) {
	var ids idParser
	p := &domain.Person{
		ID:             ids.parse("_id", d.ID),
		OwnerID:        d.OwnerID,
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		LinkedInUserID: d.LinkedInUserID,
		GitHubUserID:   d.GitHubUserID,
		Notes:          d.Notes,
		Organizations:  fromEdgeDocs(&ids, d.Organizations),
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if err := ids.check(domain.KindPerson, d.ID); err != nil {
		return nil, err
	}
	return p, nil
}

type assignmentDoc struct {
	ID               string     `bson:"_id"`
	OwnerID          string     `bson:"owner_id"`
	PersonID         string     `bson:"person_id"`
	OrganizationID   string     `bson:"organization_id"`
	PersonName       string     `bson:"person_name"`
	OrganizationName string     `bson:"organization_name"`
	Title            string     `bson:"title"`
	StartDate        *time.Time `bson:"start_date"`
	EndDate          *time.Time `bson:"end_date"`
	Current          bool       `bson:"current"`
	Notes            string     `bson:"notes"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func toAssignmentDoc(a *domain.Assignment) assignmentDoc {
	return assignmentDoc{
		ID:               a.ID.String(),
		OwnerID:          a.OwnerID,
		PersonID:         a.PersonID.String(),
		OrganizationID:   a.OrganizationID.String(),
		PersonName:       a.PersonName,
		OrganizationName: a.OrganizationName,
		Title:            a.Title,
		StartDate:        domain.TimeOf(a.StartDate),
		EndDate:          domain.TimeOf(a.EndDate),
		Current:          a.Current,
		Notes:            a.Notes,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (d assignmentDoc) assignment() (*domain.Assignment, error) {
	var ids idParser
	a := &domain.Assignment{
		ID:               ids.parse("_id", d.ID),
		OwnerID:          d.OwnerID,
		PersonID:         ids.parse("person_id", d.PersonID),
		OrganizationID:   ids.parse("organization_id", d.OrganizationID),
		PersonName:       d.PersonName,
		OrganizationName: d.OrganizationName,
		Title:            d.Title,
		StartDate:        domain.DateFromTime(d.StartDate),
		EndDate:          domain.DateFromTime(d.EndDate),
		Current:          d.Current,
		Notes:            d.Notes,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if err := ids.check("assignment", d.ID); err != nil {
		return nil, err
	}
	return a, nil
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) user() (*domain.User, error) {
	var ids idParser
	u := &domain.User{
		ID:           ids.parse("_id", d.ID),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if err := ids.check("user", d.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// idParser keeps the first malformed id met while decoding one document
type idParser struct {
	field string
	value string
	err   error
}

func (p *idParser) parse(field, s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil && p.err == nil {
		p.field, p.value, p.err = field, s, err
	}
	return id
}

func (p *idParser) check(kind any, docID string) error {
	if p.err == nil {
		return nil
	}
	return fmt.Errorf("stored %v %q has malformed %s %q: %w", kind, docID, p.field, p.value, p.err)
}

func parseID(s string) (uuid.UUID, error) {
	var p idParser
	id := p.parse("_id", s)
	return id, p.check("document", s)
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
