// Package memory provides an in-process implementation of the Rolodex
// repositories. Every call takes the store mutex and hands out deep copies, so
// each method is atomic on one record the same way a document store is. It
// backs local development and the service and handler tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// Store holds all collections for the in-memory backend
type Store struct {
	mu            sync.RWMutex
	organizations map[uuid.UUID]*domain.Organization
	people        map[uuid.UUID]*domain.Person
	assignments   map[uuid.UUID]*domain.Assignment
	users         map[uuid.UUID]*domain.User
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		organizations: map[uuid.UUID]*domain.Organization{},
		people:        map[uuid.UUID]*domain.Person{},
		assignments:   map[uuid.UUID]*domain.Assignment{},
		users:         map[uuid.UUID]*domain.User{},
	}
}

// header exposes the fields the relationship engine touches on either kind
type header struct {
	owner     string
	name      string
	edges     *[]domain.RelationshipEdge
	version   *int64
	updatedAt *time.Time
}

// header must be called with the lock held.
func (s *Store) header(kind domain.EntityKind, id uuid.UUID) (header, bool) {
	switch kind {
	case domain.KindOrganization:
		if o, ok := s.organizations[id]; ok {
			return header{owner: o.OwnerID, name: o.Name, edges: &o.People, version: &o.Version, updatedAt: &o.UpdatedAt}, true
		}
	case domain.KindPerson:
		if p, ok := s.people[id]; ok {
			return header{owner: p.OwnerID, name: p.Name, edges: &p.Organizations, version: &p.Version, updatedAt: &p.UpdatedAt}, true
		}
	}
	return header{}, false
}

// ids must be called with the lock held.
func (s *Store) ids(kind domain.EntityKind) []uuid.UUID {
	var out []uuid.UUID
	switch kind {
	case domain.KindOrganization:
		for id := range s.organizations {
			out = append(out, id)
		}
	case domain.KindPerson:
		for id := range s.people {
			out = append(out, id)
		}
	}
	return out
}

func touch(h header) {
	*h.version++
	*h.updatedAt = time.Now().UTC()
}

func cloneDate(d *domain.Date) *domain.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneEdge(e domain.RelationshipEdge) domain.RelationshipEdge {
	e.StartDate = cloneDate(e.StartDate)
	e.EndDate = cloneDate(e.EndDate)
	return e
}

func cloneEdges(edges []domain.RelationshipEdge) []domain.RelationshipEdge {
	out := make([]domain.RelationshipEdge, len(edges))
	for i, e := range edges {
		out[i] = cloneEdge(e)
	}
	return out
}

func cloneOrganization(o *domain.Organization) *domain.Organization {
	c := *o
	c.People = cloneEdges(o.People)
	return &c
}

func clonePerson(p *domain.Person) *domain.Person {
	c := *p
	c.Organizations = cloneEdges(p.Organizations)
	return &c
}

func cloneAssignment(a *domain.Assignment) *domain.Assignment {
	c := *a
	c.StartDate = cloneDate(a.StartDate)
	c.EndDate = cloneDate(a.EndDate)
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
