package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
	"github.com/rolodex/rolodex/api/internal/pkg/metrics"
)

// DefaultSweepConcurrency bounds parallel counterpart operations when no
// explicit limit is configured.
const DefaultSweepConcurrency = 4

// RelationshipService keeps the embedded organization/person edges and the
// assignment records consistent with each other.
//
// The store offers atomic single-document updates only, so every operation
// here is a sequence of independent writes:
//   - the primary record is written first and is authoritative
//   - mirror edges on counterparts are updated afterwards, one operation per
//     unique counterpart id, and failures are collected instead of aborting
//   - stale mirrors left by a partial sweep are repaired by Reconcile, which
//     the resync worker runs, and by the nightly SweepOrphans backstop
//
// Two concurrent edits of the same link from both sides resolve as last
// writer wins per document. Callers that need stricter behavior pass an
// expected version.
//
// The service is safe for concurrent use.
type RelationshipService struct {
	nodes       map[domain.EntityKind]NodeRepository
	assignments AssignmentRepository
	concurrency int
	logger      *zap.Logger

	events EventPublisher
	cache  LookupCache
	resync ResyncScheduler
}

// NewRelationshipService creates a new RelationshipService.
//
// Parameters:
//   - logger: Structured logger (required)
//   - orgs, people: Node views of the two edge-holding collections (required)
//   - assignments: Assignment repository used by cascade and rename (required)
//   - concurrency: Upper bound on parallel counterpart operations; values < 1 use DefaultSweepConcurrency
func NewRelationshipService(
	logger *zap.Logger,
	orgs NodeRepository,
	people NodeRepository,
	assignments AssignmentRepository,
	concurrency int,
) *RelationshipService {
	if concurrency < 1 {
		concurrency = DefaultSweepConcurrency
	}
	return &RelationshipService{
		nodes: map[domain.EntityKind]NodeRepository{
			domain.KindOrganization: orgs,
			domain.KindPerson:       people,
		},
		assignments: assignments,
		concurrency: concurrency,
		logger:      logger.Named("relationships"),
	}
}

// SetEventPublisher sets the publisher for relationship change events
func (s *RelationshipService) SetEventPublisher(p EventPublisher) {
	s.events = p
}

// SetLookupCache sets the cache invalidated after every mutation
func (s *RelationshipService) SetLookupCache(c LookupCache) {
	s.cache = c
}

// SetResyncScheduler sets the scheduler used after a partial sweep
func (s *RelationshipService) SetResyncScheduler(r ResyncScheduler) {
	s.resync = r
}

func (s *RelationshipService) repo(kind domain.EntityKind) (NodeRepository, error) {
	r, ok := s.nodes[kind]
	if !ok || r == nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("entity kind %q has no relationships", kind))
	}
	return r, nil
}

// ResolveEdges turns requested edges into stored edges for an entity of the
// given kind. Duplicate counterpart ids collapse to the last occurrence. Every
// counterpart must exist under the owner and every date range must be ordered;
// nothing is written.
func (s *RelationshipService) ResolveEdges(ctx context.Context, ownerID string, kind domain.EntityKind, requested []domain.EdgeInput) ([]domain.RelationshipEdge, error) {
	cpRepo, err := s.repo(kind.Counterpart())
	if err != nil {
		return nil, err
	}

	edges := make([]domain.RelationshipEdge, 0, len(requested))
	for _, in := range requested {
		edges = append(edges, in.Edge(""))
	}
	edges = domain.DedupeEdges(edges)
	if len(edges) == 0 {
		return edges, nil
	}

	ids := make([]uuid.UUID, len(edges))
	for i, e := range edges {
		if e.CounterpartID == uuid.Nil {
			return nil, apperrors.Validation("counterpartId is required")
		}
		ids[i] = e.CounterpartID
	}

	nodes, err := cpRepo.GetNodes(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s records: %w", kind.Counterpart(), err)
	}
	names := make(map[uuid.UUID]string, len(nodes))
	for _, n := range nodes {
		names[n.Ref.ID] = n.Name
	}

	for i := range edges {
		name, ok := names[edges[i].CounterpartID]
		if !ok {
			return nil, apperrors.NotFound(string(kind.Counterpart())).
				WithDetail("id", edges[i].CounterpartID.String())
		}
		edges[i].CounterpartName = name
	}

	if err := domain.ValidateEdgeDates(kind.Counterpart(), edges); err != nil {
		return nil, err
	}
	return edges, nil
}

// SynchronizeRelationships replaces the edge list of an organization or person
// and mirrors the change onto every affected counterpart.
//
// Parameters:
//   - ownerID: Owner scoping both sides of every edge
//   - kind, id: The primary entity
//   - requested: The complete new edge list; an empty list removes every edge
//   - expectedVersion: When set, the primary must still be at this version
//
// Returns:
//   - *domain.SyncResult: The written primary, the applied diff and any counterpart failures
//   - error: NotFound, Validation or Conflict before any write, or a primary write failure
//
// Side Effects:
//   - Schedules a resync when counterpart operations failed
//   - Publishes edge events and invalidates the owner's lookup cache
func (s *RelationshipService) SynchronizeRelationships(
	ctx context.Context,
	ownerID string,
	kind domain.EntityKind,
	id uuid.UUID,
	requested []domain.EdgeInput,
	expectedVersion *int64,
) (*domain.SyncResult, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}

	node, err := repo.GetNode(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(kind, node.Version, expectedVersion); err != nil {
		return nil, err
	}

	edges, err := s.ResolveEdges(ctx, ownerID, kind, requested)
	if err != nil {
		return nil, err
	}
	diff := domain.DiffEdges(node.Edges, edges)

	updated, err := repo.ReplaceEdges(ctx, ownerID, id, edges, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s relationships: %w", kind, err)
	}

	result := &domain.SyncResult{
		Node:     updated,
		Diff:     diff,
		Failures: s.MirrorEdges(ctx, updated, diff),
	}
	s.AfterMutation(ctx, ownerID, updated.Ref, result.Failures, domain.EdgeEvents(ownerID, updated.Ref, diff)...)
	return result, nil
}

// MirrorEdges applies a diff computed on node to the counterpart side. Each
// counterpart id gets exactly one operation; operations run in parallel up to
// the configured bound and every failure is returned in diff order.
func (s *RelationshipService) MirrorEdges(ctx context.Context, node *domain.Node, diff domain.EdgeDiff) []domain.SyncFailure {
	if diff.IsEmpty() {
		return nil
	}
	cpKind := node.Ref.Kind.Counterpart()
	cpRepo, err := s.repo(cpKind)
	if err != nil {
		return []domain.SyncFailure{domain.NewSyncFailure(node.Ref, domain.SyncOpPush, err)}
	}
	metrics.RecordSweep(string(node.Ref.Kind))

	var ops []sweepOp
	for _, e := range diff.ToAdd {
		mirror := e.Mirror(node.Ref.ID, node.Name)
		ops = append(ops, sweepOp{ref: domain.Ref(cpKind, e.CounterpartID), op: domain.SyncOpPush, run: func(ctx context.Context) error {
			return s.ensureMirror(ctx, cpRepo, node.OwnerID, e.CounterpartID, mirror)
		}})
	}
	for _, e := range diff.ToUpdate {
		mirror := e.Mirror(node.Ref.ID, node.Name)
		ops = append(ops, sweepOp{ref: domain.Ref(cpKind, e.CounterpartID), op: domain.SyncOpUpdate, run: func(ctx context.Context) error {
			return s.updateMirror(ctx, cpRepo, node.OwnerID, e.CounterpartID, mirror)
		}})
	}
	for _, e := range diff.ToRemove {
		cpID := e.CounterpartID
		ops = append(ops, sweepOp{ref: domain.Ref(cpKind, cpID), op: domain.SyncOpPull, run: func(ctx context.Context) error {
			_, err := cpRepo.PullEdge(ctx, node.OwnerID, cpID, node.Ref.ID)
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}})
	}

	failures := s.runSweep(ctx, ops)
	for _, f := range failures {
		metrics.RecordSyncFailure(string(node.Ref.Kind), string(f.Op))
		s.logger.Warn("counterpart sync failed",
			zap.String("owner_id", node.OwnerID),
			zap.String("entity", node.Ref.String()),
			zap.String("counterpart", f.Ref.String()),
			zap.String("op", string(f.Op)),
			zap.String("error", f.Message),
		)
	}
	return failures
}

// ensureMirror makes the counterpart hold exactly mirror. The push is guarded
// so an existing edge is updated in place instead of duplicated.
func (s *RelationshipService) ensureMirror(ctx context.Context, repo NodeRepository, ownerID string, counterpartID uuid.UUID, mirror domain.RelationshipEdge) error {
	pushed, err := repo.PushEdge(ctx, ownerID, counterpartID, mirror)
	if err != nil {
		return err
	}
	if pushed {
		return nil
	}
	_, err = repo.UpdateEdge(ctx, ownerID, counterpartID, mirror, true)
	return err
}

// updateMirror changes an existing mirror in place and falls back to a
// guarded push when the counterpart lost it.
func (s *RelationshipService) updateMirror(ctx context.Context, repo NodeRepository, ownerID string, counterpartID uuid.UUID, mirror domain.RelationshipEdge) error {
	updated, err := repo.UpdateEdge(ctx, ownerID, counterpartID, mirror, true)
	if err != nil || updated {
		return err
	}
	_, err = repo.PushEdge(ctx, ownerID, counterpartID, mirror)
	return err
}

type sweepOp struct {
	ref domain.Reference
	op  domain.SyncOp
	run func(ctx context.Context) error
}

// runSweep executes independent operations with bounded parallelism. A failed
// operation never stops the others.
func (s *RelationshipService) runSweep(ctx context.Context, ops []sweepOp) []domain.SyncFailure {
	if len(ops) == 0 {
		return nil
	}
	results := make([]error, len(ops))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, op := range ops {
		g.Go(func() error {
			results[i] = op.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var failures []domain.SyncFailure
	for i, err := range results {
		if err != nil {
			failures = append(failures, domain.NewSyncFailure(ops[i].ref, ops[i].op, err))
		}
	}
	return failures
}

// PropagateNameChange rewrites the cached name of an organization or person on
// every counterpart edge and assignment that references it. Re-running it with
// the same name changes nothing further.
//
// Returns the number of records rewritten. When either bulk update fails the
// error is a PARTIAL_SYNC_FAILURE and the count covers what succeeded.
func (s *RelationshipService) PropagateNameChange(ctx context.Context, ownerID string, kind domain.EntityKind, id uuid.UUID, newName string) (int64, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, apperrors.Validation("name must not be blank")
	}
	count, failures := s.propagateName(ctx, ownerID, domain.Ref(kind, id), newName)
	ev := domain.NewRelationshipEvent(domain.EventEntityRenamed, ownerID, domain.Ref(kind, id))
	ev.Name = newName
	ev.Count = count
	s.AfterMutation(ctx, ownerID, domain.Ref(kind, id), failures, ev)
	if len(failures) > 0 {
		return count, domain.PartialSyncError(failures)
	}
	return count, nil
}

func (s *RelationshipService) propagateName(ctx context.Context, ownerID string, ref domain.Reference, newName string) (int64, []domain.SyncFailure) {
	cpRepo, err := s.repo(ref.Kind.Counterpart())
	if err != nil {
		return 0, []domain.SyncFailure{domain.NewSyncFailure(ref, domain.SyncOpRename, err)}
	}

	var (
		total    int64
		failures []domain.SyncFailure
	)
	n, err := cpRepo.SetCachedName(ctx, ownerID, ref.ID, newName)
	if err != nil {
		failures = append(failures, domain.NewSyncFailure(ref, domain.SyncOpRename, fmt.Errorf("%s edges: %w", cpRepo.Kind(), err)))
	}
	total += n

	n, err = s.assignments.SetCachedName(ctx, ownerID, ref, newName)
	if err != nil {
		failures = append(failures, domain.NewSyncFailure(ref, domain.SyncOpRename, fmt.Errorf("assignments: %w", err)))
	}
	total += n

	metrics.RecordNamePropagation(string(ref.Kind), total)
	for _, f := range failures {
		metrics.RecordSyncFailure(string(ref.Kind), string(f.Op))
		s.logger.Warn("name propagation failed",
			zap.String("owner_id", ownerID),
			zap.String("entity", ref.String()),
			zap.String("error", f.Message),
		)
	}
	return total, failures
}

// CascadeDeleteReferences removes every mirror edge and assignment pointing at
// a deleted organization or person. It runs every step even when some fail.
//
// Returns the number of edges and assignments removed. When a step fails the
// error is a PARTIAL_SYNC_FAILURE naming exactly the references that remain.
func (s *RelationshipService) CascadeDeleteReferences(ctx context.Context, ownerID string, kind domain.EntityKind, id uuid.UUID) (int64, error) {
	ref := domain.Ref(kind, id)
	cpRepo, err := s.repo(kind.Counterpart())
	if err != nil {
		return 0, err
	}

	var (
		ops      []sweepOp
		failures []domain.SyncFailure
		mu       sync.Mutex
		edges    int64
		assigns  int64
	)

	referencing, err := cpRepo.ListReferencing(ctx, ownerID, id)
	if err != nil {
		failures = append(failures, domain.NewSyncFailure(ref, domain.SyncOpPull, fmt.Errorf("failed to list referencing %s: %w", cpRepo.Kind(), err)))
	}
	for _, cpID := range referencing {
		ops = append(ops, sweepOp{ref: domain.Ref(cpRepo.Kind(), cpID), op: domain.SyncOpPull, run: func(ctx context.Context) error {
			removed, err := cpRepo.PullEdge(ctx, ownerID, cpID, id)
			if apperrors.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			if removed {
				mu.Lock()
				edges++
				mu.Unlock()
			}
			return nil
		}})
	}

	assignments, err := s.assignments.ListByParent(ctx, ownerID, ref)
	if err != nil {
		failures = append(failures, domain.NewSyncFailure(ref, domain.SyncOpDelete, fmt.Errorf("failed to list assignments: %w", err)))
	}
	for _, a := range assignments {
		aID := a.ID
		ops = append(ops, sweepOp{ref: domain.Ref(domain.KindAssignment, aID), op: domain.SyncOpDelete, run: func(ctx context.Context) error {
			err := s.assignments.Delete(ctx, ownerID, aID)
			if apperrors.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			assigns++
			mu.Unlock()
			return nil
		}})
	}

	failures = append(failures, s.runSweep(ctx, ops)...)
	count := edges + assigns

	metrics.RecordCascadeDeleted(string(kind), count)
	s.logger.Info("cascade delete finished",
		zap.String("owner_id", ownerID),
		zap.String("entity", ref.String()),
		zap.Int64("edges_removed", edges),
		zap.Int64("assignments_deleted", assigns),
		zap.Int("remaining", len(failures)),
	)
	for _, f := range failures {
		metrics.RecordSyncFailure(string(kind), string(f.Op))
	}

	ev := domain.NewRelationshipEvent(domain.EventEntityDeleted, ownerID, ref)
	ev.Count = count
	s.publish(ctx, ev)
	s.invalidate(ctx, ownerID)

	if len(failures) > 0 {
		return count, domain.PartialSyncError(failures)
	}
	return count, nil
}

// Reconcile repairs the relationships of one organization or person so that
// its edges and the counterpart mirrors agree, treating the primary's edge
// list as authoritative. It is idempotent and is what resync retries run.
//
// Edges whose counterpart no longer exists are dropped from the primary,
// cached names on the primary are refreshed, every mirror is pushed or
// updated, and mirrors on counterparts that are not in the primary's list
// are pulled.
func (s *RelationshipService) Reconcile(ctx context.Context, ownerID string, kind domain.EntityKind, id uuid.UUID) (*domain.SyncResult, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	cpKind := kind.Counterpart()
	cpRepo, err := s.repo(cpKind)
	if err != nil {
		return nil, err
	}

	node, err := repo.GetNode(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(node.Edges))
	for _, e := range node.Edges {
		ids = append(ids, e.CounterpartID)
	}
	counterparts, err := cpRepo.GetNodes(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s records: %w", cpKind, err)
	}
	names := make(map[uuid.UUID]string, len(counterparts))
	for _, n := range counterparts {
		names[n.Ref.ID] = n.Name
	}

	diff := domain.EdgeDiff{
		ToAdd:     []domain.RelationshipEdge{},
		ToRemove:  []domain.RelationshipEdge{},
		ToUpdate:  []domain.RelationshipEdge{},
		Unchanged: []domain.RelationshipEdge{},
	}
	var ops []sweepOp
	listed := make(map[uuid.UUID]struct{}, len(node.Edges))

	for _, e := range domain.DedupeEdges(node.Edges) {
		listed[e.CounterpartID] = struct{}{}
		cpID := e.CounterpartID
		name, ok := names[cpID]
		if !ok {
			diff.ToRemove = append(diff.ToRemove, e)
			ops = append(ops, sweepOp{ref: node.Ref, op: domain.SyncOpPull, run: func(ctx context.Context) error {
				_, err := repo.PullEdge(ctx, ownerID, id, cpID)
				return err
			}})
			continue
		}

		fresh := e
		fresh.CounterpartName = name
		mirror := e.Mirror(id, node.Name)
		if e.CounterpartName != name {
			diff.ToUpdate = append(diff.ToUpdate, fresh)
		} else {
			diff.Unchanged = append(diff.Unchanged, fresh)
		}
		ops = append(ops, sweepOp{ref: domain.Ref(cpKind, cpID), op: domain.SyncOpPush, run: func(ctx context.Context) error {
			if fresh.CounterpartName != e.CounterpartName {
				if _, err := repo.UpdateEdge(ctx, ownerID, id, fresh, true); err != nil {
					return fmt.Errorf("failed to refresh cached name: %w", err)
				}
			}
			return s.updateMirror(ctx, cpRepo, ownerID, cpID, mirror)
		}})
	}

	referencing, err := cpRepo.ListReferencing(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list referencing %s: %w", cpKind, err)
	}
	for _, cpID := range referencing {
		if _, ok := listed[cpID]; ok {
			continue
		}
		diff.ToRemove = append(diff.ToRemove, domain.RelationshipEdge{CounterpartID: cpID})
		ops = append(ops, sweepOp{ref: domain.Ref(cpKind, cpID), op: domain.SyncOpPull, run: func(ctx context.Context) error {
			_, err := cpRepo.PullEdge(ctx, ownerID, cpID, id)
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}})
	}

	metrics.RecordSweep(string(kind))
	failures := s.runSweep(ctx, ops)
	for _, f := range failures {
		metrics.RecordSyncFailure(string(kind), string(f.Op))
	}

	refreshed, err := repo.GetNode(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reconciled relationships",
		zap.String("owner_id", ownerID),
		zap.String("entity", node.Ref.String()),
		zap.Int("edges", len(refreshed.Edges)),
		zap.Int("stale_removed", len(diff.ToRemove)),
		zap.Int("failures", len(failures)),
	)
	s.invalidate(ctx, ownerID)

	return &domain.SyncResult{Node: refreshed, Diff: diff, Failures: failures}, nil
}

type existenceKey struct {
	owner string
	ref   domain.Reference
}

// SweepOrphans scans both edge-holding collections and the assignments for
// references to records that no longer exist and removes them unless dryRun
// is set. It is the backstop for deletes whose cascade was interrupted.
func (s *RelationshipService) SweepOrphans(ctx context.Context, dryRun bool) (*domain.OrphanReport, error) {
	report := &domain.OrphanReport{
		DryRun:            dryRun,
		DanglingEdges:     []domain.DanglingEdge{},
		OrphanAssignments: []uuid.UUID{},
	}

	exists := make(map[existenceKey]bool)
	check := func(ctx context.Context, owner string, ref domain.Reference) (bool, error) {
		key := existenceKey{owner: owner, ref: ref}
		if ok, seen := exists[key]; seen {
			return ok, nil
		}
		repo, err := s.repo(ref.Kind)
		if err != nil {
			return false, err
		}
		ok, err := repo.Exists(ctx, owner, ref.ID)
		if err != nil {
			return false, err
		}
		exists[key] = ok
		return ok, nil
	}

	type dangling struct {
		owner string
		edge  domain.DanglingEdge
	}
	var found []dangling

	for _, kind := range []domain.EntityKind{domain.KindOrganization, domain.KindPerson} {
		repo, err := s.repo(kind)
		if err != nil {
			return nil, err
		}
		var nodes []domain.Node
		err = repo.ForEachNode(ctx, func(n *domain.Node) error {
			nodes = append(nodes, *n)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind.Collection(), err)
		}
		for _, n := range nodes {
			report.NodesScanned++
			for _, e := range n.Edges {
				cp := domain.Ref(kind.Counterpart(), e.CounterpartID)
				ok, err := check(ctx, n.OwnerID, cp)
				if err != nil {
					return nil, fmt.Errorf("failed to check %s: %w", cp, err)
				}
				if !ok {
					found = append(found, dangling{owner: n.OwnerID, edge: domain.DanglingEdge{Holder: n.Ref, Counterpart: cp}})
				}
			}
		}
	}

	var orphans []domain.Assignment
	err := s.assignments.ForEach(ctx, func(a *domain.Assignment) error {
		orphans = append(orphans, *a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments: %w", err)
	}
	var orphaned []domain.Assignment
	for _, a := range orphans {
		report.AssignmentsScanned++
		personOK, err := check(ctx, a.OwnerID, domain.Ref(domain.KindPerson, a.PersonID))
		if err != nil {
			return nil, err
		}
		orgOK, err := check(ctx, a.OwnerID, domain.Ref(domain.KindOrganization, a.OrganizationID))
		if err != nil {
			return nil, err
		}
		if !personOK || !orgOK {
			orphaned = append(orphaned, a)
			report.OrphanAssignments = append(report.OrphanAssignments, a.ID)
		}
	}
	for _, d := range found {
		report.DanglingEdges = append(report.DanglingEdges, d.edge)
	}

	if dryRun {
		s.logger.Info("orphan sweep (dry run)",
			zap.Int("dangling_edges", len(found)),
			zap.Int("orphan_assignments", len(orphaned)),
		)
		return report, nil
	}

	var ops []sweepOp
	var mu sync.Mutex
	touched := make(map[string]struct{})
	for _, d := range found {
		holderRepo, err := s.repo(d.edge.Holder.Kind)
		if err != nil {
			return nil, err
		}
		owner, holder, cp := d.owner, d.edge.Holder, d.edge.Counterpart
		touched[owner] = struct{}{}
		ops = append(ops, sweepOp{ref: holder, op: domain.SyncOpPull, run: func(ctx context.Context) error {
			removed, err := holderRepo.PullEdge(ctx, owner, holder.ID, cp.ID)
			if apperrors.IsNotFound(err) {
				return nil
			}
			if err == nil && removed {
				mu.Lock()
				report.EdgesRemoved++
				mu.Unlock()
			}
			return err
		}})
	}
	for _, a := range orphaned {
		owner, aID := a.OwnerID, a.ID
		touched[owner] = struct{}{}
		ops = append(ops, sweepOp{ref: domain.Ref(domain.KindAssignment, aID), op: domain.SyncOpDelete, run: func(ctx context.Context) error {
			err := s.assignments.Delete(ctx, owner, aID)
			if apperrors.IsNotFound(err) {
				return nil
			}
			if err == nil {
				mu.Lock()
				report.AssignmentsRemoved++
				mu.Unlock()
			}
			return err
		}})
	}

	report.Failures = s.runSweep(ctx, ops)
	metrics.RecordOrphansRemoved("edge", report.EdgesRemoved)
	metrics.RecordOrphansRemoved("assignment", report.AssignmentsRemoved)
	for owner := range touched {
		s.invalidate(ctx, owner)
	}

	s.logger.Info("orphan sweep finished",
		zap.Int("nodes_scanned", report.NodesScanned),
		zap.Int("assignments_scanned", report.AssignmentsScanned),
		zap.Int("edges_removed", report.EdgesRemoved),
		zap.Int("assignments_removed", report.AssignmentsRemoved),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

// AfterMutation runs the best-effort follow-ups of a committed mutation:
// scheduling a resync when failures remain, publishing events and dropping
// the owner's cached lookups. None of them fail the caller.
func (s *RelationshipService) AfterMutation(ctx context.Context, ownerID string, ref domain.Reference, failures []domain.SyncFailure, events ...domain.RelationshipEvent) {
	if len(failures) > 0 && s.resync != nil {
		if err := s.resync.ScheduleResync(ctx, ownerID, ref); err != nil {
			s.logger.Error("failed to schedule resync",
				zap.String("owner_id", ownerID),
				zap.String("entity", ref.String()),
				zap.Error(err),
			)
		}
	}
	s.publish(ctx, events...)
	s.invalidate(ctx, ownerID)
}

func (s *RelationshipService) publish(ctx context.Context, events ...domain.RelationshipEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish relationship events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

func (s *RelationshipService) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("failed to invalidate lookup cache",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}
}

func checkVersion(kind domain.EntityKind, current int64, expected *int64) error {
	if expected == nil || *expected == current {
		return nil
	}
	return apperrors.Conflict(fmt.Sprintf("%s was modified: expected version %d, current version %d", kind, *expected, current))
}
