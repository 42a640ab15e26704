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

// OrganizationRepository implements service.OrganizationRepository
type OrganizationRepository struct {
	nodeRepository
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(store *Store) *OrganizationRepository {
	return &OrganizationRepository{nodeRepository{store: store, kind: domain.KindOrganization}}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.organizations[org.ID]; ok {
		return apperrors.Conflict("organization already exists")
	}
	if org.Version == 0 {
		org.Version = 1
	}
	r.store.organizations[org.ID] = cloneOrganization(org)
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Organization, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	o, ok := r.store.organizations[id]
	if !ok || o.OwnerID != ownerID {
		return nil, apperrors.NotFound("organization")
	}
	return cloneOrganization(o), nil
}

// GetMany retrieves the organizations that exist among ids
func (r *OrganizationRepository) GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Organization, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Organization, 0, len(ids))
	for _, id := range ids {
		if o, ok := r.store.organizations[id]; ok && o.OwnerID == ownerID {
			out = append(out, *cloneOrganization(o))
		}
	}
	return out, nil
}

// List retrieves a page of organizations ordered by name
func (r *OrganizationRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.OrganizationList, error) {
	r.store.mu.RLock()
	var all []domain.Organization
	for _, o := range r.store.organizations {
		if o.OwnerID == ownerID {
			all = append(all, *cloneOrganization(o))
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
	return &domain.OrganizationList{
		Organizations: items,
		TotalCount:    int64(len(all)),
		HasMore:       offset+len(items) < len(all),
	}, nil
}

// Update writes the scalar fields and, when requested, the people list
func (r *OrganizationRepository) Update(ctx context.Context, org *domain.Organization, opts domain.UpdateOptions) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.organizations[org.ID]
	if !ok || stored.OwnerID != org.OwnerID {
		return apperrors.NotFound("organization")
	}
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != stored.Version {
		return apperrors.Conflict("organization was modified concurrently")
	}

	stored.Name = org.Name
	stored.Industry = org.Industry
	stored.Website = org.Website
	if opts.ReplaceEdges {
		stored.People = cloneEdges(org.People)
	}
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	org.People = cloneEdges(stored.People)
	org.Version = stored.Version
	org.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete deletes an organization
func (r *OrganizationRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.organizations[id]
	if !ok || o.OwnerID != ownerID {
		return apperrors.NotFound("organization")
	}
	delete(r.store.organizations, id)
	return nil
}
