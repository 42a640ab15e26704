package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// PersonRepository implements service.PersonRepository
type PersonRepository struct {
	nodeRepository
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(store *Store) *PersonRepository {
	return &PersonRepository{nodeRepository{store: store, kind: domain.KindPerson}}
}

// Create creates a new person
func (r *PersonRepository) Create(ctx context.Context, person *domain.Person) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.people[person.ID]; ok {
		return apperrors.Conflict("person already exists")
	}
	if person.Version == 0 {
		person.Version = 1
	}
	r.store.people[person.ID] = clonePerson(person)
	return nil
}

// GetByID retrieves a person by ID
func (r *PersonRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Person, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.people[id]
	if !ok || p.OwnerID != ownerID {
		return nil, apperrors.NotFound("person")
	}
	return clonePerson(p), nil
}

// GetMany retrieves the people that exist among ids
func (r *PersonRepository) GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Person, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.store.people[id]; ok && p.OwnerID == ownerID {
			out = append(out, *clonePerson(p))
		}
	}
	return out, nil
}

// List retrieves a page of people ordered by name
func (r *PersonRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.PersonList, error) {
	r.store.mu.RLock()
	var all []domain.Person
	for _, p := range r.store.people {
		if p.OwnerID == ownerID {
			all = append(all, *clonePerson(p))
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].Name), strings.ToLower(all[j].Name)
		if a != b {
			return a < b
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	items := page(all, limit, offset)
	return &domain.PersonList{
		People:     items,
		TotalCount: int64(len(all)),
		HasMore:    offset+len(items) < len(all),
	}, nil
}

// Update writes the scalar fields and, when requested, the organizations list
func (r *PersonRepository) Update(ctx context.Context, person *domain.Person, opts domain.UpdateOptions) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.people[person.ID]
	if !ok || stored.OwnerID != person.OwnerID {
		return apperrors.NotFound("person")
	}
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != stored.Version {
		return apperrors.Conflict("person was modified concurrently")
	}

	stored.Name = person.Name
	stored.Email = person.Email
	stored.Phone = person.Phone
	stored.LinkedInUserID = person.LinkedInUserID
	stored.GitHubUserID = person.GitHubUserID
	stored.Notes = person.Notes
	if opts.ReplaceEdges {
		stored.Organizations = cloneEdges(person.Organizations)
	}
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	person.Organizations = cloneEdges(stored.Organizations)
	person.Version = stored.Version
	person.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete deletes a person
func (r *PersonRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.people[id]
	if !ok || p.OwnerID != ownerID {
		return apperrors.NotFound("person")
	}
	delete(r.store.people, id)
	return nil
}
