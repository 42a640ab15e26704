package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// AssignmentRepository implements service.AssignmentRepository
type AssignmentRepository struct {
	store *Store
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(store *Store) *AssignmentRepository {
	return &AssignmentRepository{store: store}
}

// Create creates a new assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.assignments[a.ID]; ok {
		return apperrors.Conflict("assignment already exists")
	}
	r.store.assignments[a.ID] = cloneAssignment(a)
	return nil
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Assignment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.assignments[id]
	if !ok || a.OwnerID != ownerID {
		return nil, apperrors.NotFound("assignment")
	}
	return cloneAssignment(a), nil
}

// Update replaces an assignment
func (r *AssignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.assignments[a.ID]
	if !ok || stored.OwnerID != a.OwnerID {
		return apperrors.NotFound("assignment")
	}
	r.store.assignments[a.ID] = cloneAssignment(a)
	return nil
}

// Delete deletes an assignment
func (r *AssignmentRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.assignments[id]
	if !ok || a.OwnerID != ownerID {
		return apperrors.NotFound("assignment")
	}
	delete(r.store.assignments, id)
	return nil
}

func (r *AssignmentRepository) filter(ownerID string, match func(*domain.Assignment) bool) []domain.Assignment {
	r.store.mu.RLock()
	out := []domain.Assignment{}
	for _, a := range r.store.assignments {
		if a.OwnerID == ownerID && match(a) {
			out = append(out, *cloneAssignment(a))
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ListByParent returns assignments referencing the person or organization
func (r *AssignmentRepository) ListByParent(ctx context.Context, ownerID string, parent domain.Reference) ([]domain.Assignment, error) {
	return r.filter(ownerID, func(a *domain.Assignment) bool {
		return a.Parent(parent.Kind) == parent.ID
	}), nil
}

// ListByPair returns assignments linking one person to one organization
func (r *AssignmentRepository) ListByPair(ctx context.Context, ownerID string, personID, organizationID uuid.UUID) ([]domain.Assignment, error) {
	return r.filter(ownerID, func(a *domain.Assignment) bool {
		return a.PersonID == personID && a.OrganizationID == organizationID
	}), nil
}

// ListByOwner returns every assignment the owner holds
func (r *AssignmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Assignment, error) {
	return r.filter(ownerID, func(*domain.Assignment) bool { return true }), nil
}

// List retrieves a page of the owner's assignments, oldest first
func (r *AssignmentRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.AssignmentList, error) {
	all := r.filter(ownerID, func(*domain.Assignment) bool { return true })
	items := page(all, limit, offset)
	return &domain.AssignmentList{
		Assignments: items,
		TotalCount:  int64(len(all)),
		HasMore:     offset+len(items) < len(all),
	}, nil
}

// SetCachedName rewrites the cached parent name on the owner's assignments
func (r *AssignmentRepository) SetCachedName(ctx context.Context, ownerID string, parent domain.Reference, name string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, a := range r.store.assignments {
		if a.OwnerID != ownerID || a.Parent(parent.Kind) != parent.ID {
			continue
		}
		field := &a.OrganizationName
		if parent.Kind == domain.KindPerson {
			field = &a.PersonName
		}
		if *field == name {
			continue
		}
		*field = name
		a.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

// ForEach visits every assignment across all owners
func (r *AssignmentRepository) ForEach(ctx context.Context, fn func(*domain.Assignment) error) error {
	r.store.mu.RLock()
	all := make([]*domain.Assignment, 0, len(r.store.assignments))
	for _, a := range r.store.assignments {
		all = append(all, cloneAssignment(a))
	}
	r.store.mu.RUnlock()

	for _, a := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}
