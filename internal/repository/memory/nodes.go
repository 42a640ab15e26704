package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// nodeRepository implements service.NodeRepository for one kind
type nodeRepository struct {
	store *Store
	kind  domain.EntityKind
}

func (r *nodeRepository) Kind() domain.EntityKind {
	return r.kind
}

// lookup must be called with the lock held.
func (r *nodeRepository) lookup(ownerID string, id uuid.UUID) (header, error) {
	h, ok := r.store.header(r.kind, id)
	if !ok || h.owner != ownerID {
		return header{}, apperrors.NotFound(string(r.kind))
	}
	return h, nil
}

func (r *nodeRepository) node(id uuid.UUID, h header) *domain.Node {
	return &domain.Node{
		Ref:     domain.Ref(r.kind, id),
		OwnerID: h.owner,
		Name:    h.name,
		Edges:   cloneEdges(*h.edges),
		Version: *h.version,
	}
}

func (r *nodeRepository) GetNode(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Node, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	h, err := r.lookup(ownerID, id)
	if err != nil {
		return nil, err
	}
	return r.node(id, h), nil
}

func (r *nodeRepository) GetNodes(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Node, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		if h, err := r.lookup(ownerID, id); err == nil {
			out = append(out, *r.node(id, h))
		}
	}
	return out, nil
}

func (r *nodeRepository) Exists(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, err := r.lookup(ownerID, id)
	return err == nil, nil
}

func (r *nodeRepository) ReplaceEdges(ctx context.Context, ownerID string, id uuid.UUID, edges []domain.RelationshipEdge, expectedVersion *int64) (*domain.Node, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	h, err := r.lookup(ownerID, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != *h.version {
		return nil, apperrors.Conflict(string(r.kind) + " was modified concurrently")
	}
	*h.edges = cloneEdges(edges)
	touch(h)
	return r.node(id, h), nil
}

func (r *nodeRepository) PushEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	h, err := r.lookup(ownerID, id)
	if err != nil {
		return false, err
	}
	for _, e := range *h.edges {
		if e.CounterpartID == edge.CounterpartID {
			return false, nil
		}
	}
	*h.edges = append(*h.edges, cloneEdge(edge))
	touch(h)
	return true, nil
}

func (r *nodeRepository) PullEdge(ctx context.Context, ownerID string, id, counterpartID uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	h, err := r.lookup(ownerID, id)
	if err != nil {
		return false, err
	}
	kept := (*h.edges)[:0]
	removed := false
	for _, e := range *h.edges {
		if e.CounterpartID == counterpartID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	*h.edges = kept
	if removed {
		touch(h)
	}
	return removed, nil
}

func (r *nodeRepository) UpdateEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge, withName bool) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	h, err := r.lookup(ownerID, id)
	if err != nil {
		return false, err
	}
	edges := *h.edges
	for i := range edges {
		if edges[i].CounterpartID != edge.CounterpartID {
			continue
		}
		edges[i].Role = edge.Role
		edges[i].StartDate = cloneDate(edge.StartDate)
		edges[i].EndDate = cloneDate(edge.EndDate)
		if withName {
			edges[i].CounterpartName = edge.CounterpartName
		}
		touch(h)
		return true, nil
	}
	return false, nil
}

func (r *nodeRepository) SetCachedName(ctx context.Context, ownerID string, counterpartID uuid.UUID, name string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, id := range r.store.ids(r.kind) {
		h, _ := r.store.header(r.kind, id)
		if h.owner != ownerID {
			continue
		}
		changed := false
		for i := range *h.edges {
			e := &(*h.edges)[i]
			if e.CounterpartID == counterpartID && e.CounterpartName != name {
				e.CounterpartName = name
				changed = true
			}
		}
		if changed {
			touch(h)
			n++
		}
	}
	return n, nil
}

func (r *nodeRepository) ListReferencing(ctx context.Context, ownerID string, counterpartID uuid.UUID) ([]uuid.UUID, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []uuid.UUID
	for _, id := range r.store.ids(r.kind) {
		h, _ := r.store.header(r.kind, id)
		if h.owner != ownerID {
			continue
		}
		for _, e := range *h.edges {
			if e.CounterpartID == counterpartID {
				out = append(out, id)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *nodeRepository) ForEachNode(ctx context.Context, fn func(*domain.Node) error) error {
	r.store.mu.RLock()
	nodes := make([]*domain.Node, 0)
	for _, id := range r.store.ids(r.kind) {
		h, _ := r.store.header(r.kind, id)
		nodes = append(nodes, r.node(id, h))
	}
	r.store.mu.RUnlock()

	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}
