package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// NodeRepository is the kind-agnostic view of the organizations or people
// collection used by the relationship engine. Every method is scoped by owner;
// a record owned by someone else behaves exactly like a missing one.
// All methods must be safe for concurrent use.
type NodeRepository interface {
	// Kind returns the entity kind stored by this repository.
	Kind() domain.EntityKind
	// GetNode loads a record's relationship view.
	GetNode(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Node, error)
	// GetNodes loads the records that exist among ids. Missing ids are omitted.
	GetNodes(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Node, error)
	// Exists reports whether the record exists for the owner.
	Exists(ctx context.Context, ownerID string, id uuid.UUID) (bool, error)
	// ReplaceEdges overwrites the embedded edge list and returns the new view.
	ReplaceEdges(ctx context.Context, ownerID string, id uuid.UUID, edges []domain.RelationshipEdge, expectedVersion *int64) (*domain.Node, error)
	// PushEdge appends edge unless an edge with the same counterpart id is
	// already present. It reports whether the edge was appended.
	PushEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge) (bool, error)
	// PullEdge removes the edge pointing at counterpartID and reports whether one was removed.
	PullEdge(ctx context.Context, ownerID string, id, counterpartID uuid.UUID) (bool, error)
	// UpdateEdge sets the role and dates of the edge matched by counterpart id,
	// and its cached name when withName is set. It reports whether an edge matched.
	UpdateEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge, withName bool) (bool, error)
	// SetCachedName rewrites the cached name on every edge pointing at
	// counterpartID and returns the number of records changed.
	SetCachedName(ctx context.Context, ownerID string, counterpartID uuid.UUID, name string) (int64, error)
	// ListReferencing returns the ids of records holding an edge to counterpartID.
	ListReferencing(ctx context.Context, ownerID string, counterpartID uuid.UUID) ([]uuid.UUID, error)
	// ForEachNode visits every record across all owners.
	ForEachNode(ctx context.Context, fn func(*domain.Node) error) error
}

// OrganizationRepository defines organization persistence operations
type OrganizationRepository interface {
	NodeRepository
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Organization, error)
	GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Organization, error)
	// List returns a page of organizations ordered by name. A limit <= 0 returns all.
	List(ctx context.Context, ownerID string, limit, offset int) (*domain.OrganizationList, error)
	// Update writes scalar fields, and the edge list when opts.ReplaceEdges is
	// set, in one document update. org.Version is set to the stored version.
	Update(ctx context.Context, org *domain.Organization, opts domain.UpdateOptions) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// PersonRepository defines person persistence operations
type PersonRepository interface {
	NodeRepository
	Create(ctx context.Context, person *domain.Person) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Person, error)
	GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Person, error)
	// List returns a page of people ordered by name. A limit <= 0 returns all.
	List(ctx context.Context, ownerID string, limit, offset int) (*domain.PersonList, error)
	// Update writes scalar fields, and the edge list when opts.ReplaceEdges is
	// set, in one document update. person.Version is set to the stored version.
	Update(ctx context.Context, person *domain.Person, opts domain.UpdateOptions) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// AssignmentRepository defines assignment persistence operations
type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.Assignment) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Assignment, error)
	Update(ctx context.Context, a *domain.Assignment) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	// ListByParent returns assignments referencing the person or organization.
	ListByParent(ctx context.Context, ownerID string, parent domain.Reference) ([]domain.Assignment, error)
	// ListByPair returns assignments linking one person to one organization.
	ListByPair(ctx context.Context, ownerID string, personID, organizationID uuid.UUID) ([]domain.Assignment, error)
	// ListByOwner returns every assignment the owner holds.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Assignment, error)
	// List returns a page of assignments, oldest first. A limit <= 0 returns all.
	List(ctx context.Context, ownerID string, limit, offset int) (*domain.AssignmentList, error)
	// SetCachedName rewrites the cached parent name on matching assignments
	// and returns the number changed.
	SetCachedName(ctx context.Context, ownerID string, parent domain.Reference, name string) (int64, error)
	// ForEach visits every assignment across all owners.
	ForEach(ctx context.Context, fn func(*domain.Assignment) error) error
}

// UserRepository defines user persistence operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// LookupCache caches read projections per owner. Invalidate drops every
// entry for the owner at once.
type LookupCache interface {
	Get(ctx context.Context, ownerID, key string, dest any) (bool, error)
	Set(ctx context.Context, ownerID, key string, value any) error
	Invalidate(ctx context.Context, ownerID string) error
}

// EventPublisher publishes relationship change events
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.RelationshipEvent) error
}

// ResyncScheduler queues a delayed reconcile of an entity whose sweep left
// stale mirrors behind.
type ResyncScheduler interface {
	ScheduleResync(ctx context.Context, ownerID string, ref domain.Reference) error
}

// SnapshotStore stores export snapshots
type SnapshotStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key string) (string, time.Time, error)
}

// ExportScheduler queues snapshot exports
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, ownerID string, exportID uuid.UUID) error
}
