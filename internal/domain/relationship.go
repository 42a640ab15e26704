package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// RelationshipEdge is one side of an organization/person link, embedded on
// the record that owns it. The mirror edge on the counterpart carries the same
// role and dates.
type RelationshipEdge struct {
	CounterpartID   uuid.UUID `json:"counterpartId"`
	CounterpartName string    `json:"counterpartName"`
	Role            string    `json:"role"`
	StartDate       *Date     `json:"startDate,omitempty"`
	EndDate         *Date     `json:"endDate,omitempty"`
}

// SameAttributes reports whether the mutable attributes of two edges match.
// The cached name is not compared; it is maintained by name propagation.
func (e RelationshipEdge) SameAttributes(o RelationshipEdge) bool {
	return e.Role == o.Role && SameDate(e.StartDate, o.StartDate) && SameDate(e.EndDate, o.EndDate)
}

// Mirror returns the edge the counterpart should hold, pointing back at owner
func (e RelationshipEdge) Mirror(ownerID uuid.UUID, ownerName string) RelationshipEdge {
	return RelationshipEdge{
		CounterpartID:   ownerID,
		CounterpartName: ownerName,
		Role:            e.Role,
		StartDate:       e.StartDate,
		EndDate:         e.EndDate,
	}
}

// EdgeInput is a requested relationship. The counterpart name is resolved by
// the server and never taken from the caller.
type EdgeInput struct {
	CounterpartID uuid.UUID `json:"counterpartId" validate:"required"`
	Role          string    `json:"role" validate:"max=200"`
	StartDate     *Date     `json:"startDate,omitempty"`
	EndDate       *Date     `json:"endDate,omitempty"`
}

// Edge converts the input to an edge with the given cached name
func (in EdgeInput) Edge(name string) RelationshipEdge {
	return RelationshipEdge{
		CounterpartID:   in.CounterpartID,
		CounterpartName: name,
		Role:            strings.TrimSpace(in.Role),
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
	}
}

// Node is the kind-agnostic view of an organization or person used by the
// relationship engine.
type Node struct {
	Ref     Reference          `json:"ref"`
	OwnerID string             `json:"-"`
	Name    string             `json:"name"`
	Edges   []RelationshipEdge `json:"edges"`
	Version int64              `json:"version"`
}

// Edge returns the edge pointing at counterpartID, if any
func (n *Node) Edge(counterpartID uuid.UUID) (RelationshipEdge, bool) {
	for _, e := range n.Edges {
		if e.CounterpartID == counterpartID {
			return e, true
		}
	}
	return RelationshipEdge{}, false
}

// EdgeDiff is the result of comparing an existing edge list with a requested
// one. The three change sets are disjoint and keyed by counterpart id.
type EdgeDiff struct {
	ToAdd     []RelationshipEdge `json:"toAdd"`
	ToRemove  []RelationshipEdge `json:"toRemove"`
	ToUpdate  []RelationshipEdge `json:"toUpdate"`
	Unchanged []RelationshipEdge `json:"unchanged"`
}

// IsEmpty reports whether the diff requires no counterpart changes
func (d EdgeDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// Changes returns the number of counterpart operations the diff implies
func (d EdgeDiff) Changes() int {
	return len(d.ToAdd) + len(d.ToRemove) + len(d.ToUpdate)
}

// DedupeEdges collapses repeated counterpart ids. The last occurrence wins and
// keeps the position of the first.
func DedupeEdges(edges []RelationshipEdge) []RelationshipEdge {
	if len(edges) == 0 {
		return []RelationshipEdge{}
	}
	index := make(map[uuid.UUID]int, len(edges))
	out := make([]RelationshipEdge, 0, len(edges))
	for _, e := range edges {
		if i, ok := index[e.CounterpartID]; ok {
			out[i] = e
			continue
		}
		index[e.CounterpartID] = len(out)
		out = append(out, e)
	}
	return out
}

// DiffEdges computes the add/remove/update sets between two edge lists.
// It performs no I/O and its output order follows the inputs: ToRemove in
// existing order, the rest in requested order.
func DiffEdges(existing, requested []RelationshipEdge) EdgeDiff {
	requested = DedupeEdges(requested)
	existing = DedupeEdges(existing)

	current := make(map[uuid.UUID]RelationshipEdge, len(existing))
	for _, e := range existing {
		current[e.CounterpartID] = e
	}
	wanted := make(map[uuid.UUID]struct{}, len(requested))

	diff := EdgeDiff{
		ToAdd:     []RelationshipEdge{},
		ToRemove:  []RelationshipEdge{},
		ToUpdate:  []RelationshipEdge{},
		Unchanged: []RelationshipEdge{},
	}
	for _, e := range requested {
		wanted[e.CounterpartID] = struct{}{}
		prev, ok := current[e.CounterpartID]
		switch {
		case !ok:
			diff.ToAdd = append(diff.ToAdd, e)
		case !prev.SameAttributes(e):
			diff.ToUpdate = append(diff.ToUpdate, e)
		default:
			diff.Unchanged = append(diff.Unchanged, e)
		}
	}
	for _, e := range existing {
		if _, ok := wanted[e.CounterpartID]; !ok {
			diff.ToRemove = append(diff.ToRemove, e)
		}
	}
	return diff
}

// ValidateEdgeDates checks each edge's date range, naming the counterpart in
// the error.
func ValidateEdgeDates(counterpartKind EntityKind, edges []RelationshipEdge) error {
	for _, e := range edges {
		if !ValidRange(e.StartDate, e.EndDate) {
			return InvalidDateRange(counterpartKind, e.CounterpartName)
		}
	}
	return nil
}

// InvalidDateRange builds the validation error for a start date after its end
func InvalidDateRange(kind EntityKind, name string) error {
	return apperrors.Validation(fmt.Sprintf(
		"invalid date range for %s %s: start date cannot be after end date", kind, name))
}

// SyncOp names a counterpart operation within a sweep
type SyncOp string

const (
	SyncOpPush   SyncOp = "push"
	SyncOpPull   SyncOp = "pull"
	SyncOpUpdate SyncOp = "update"
	SyncOpRename SyncOp = "rename"
	SyncOpDelete SyncOp = "delete"
)

// SyncFailure records a counterpart operation that did not apply
type SyncFailure struct {
	Ref     Reference `json:"ref"`
	Op      SyncOp    `json:"op"`
	Message string    `json:"error"`
}

// NewSyncFailure builds a failure from an operation error
func NewSyncFailure(ref Reference, op SyncOp, err error) SyncFailure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return SyncFailure{Ref: ref, Op: op, Message: msg}
}

// SyncResult is the outcome of synchronizing an entity's relationships. Node
// is authoritative; Failures lists mirrors that are stale until retried.
type SyncResult struct {
	Node     *Node         `json:"node"`
	Diff     EdgeDiff      `json:"diff"`
	Failures []SyncFailure `json:"failures,omitempty"`
}

// HasFailures reports whether any counterpart operation failed
func (r *SyncResult) HasFailures() bool {
	return r != nil && len(r.Failures) > 0
}

// Err returns a partial sync failure naming the unsynced references, or nil
func (r *SyncResult) Err() error {
	if !r.HasFailures() {
		return nil
	}
	return PartialSyncError(r.Failures)
}

// PartialSyncError converts failures to a PARTIAL_SYNC_FAILURE error
func PartialSyncError(failures []SyncFailure) error {
	seen := make(map[string]struct{}, len(failures))
	refs := make([]string, 0, len(failures))
	for _, f := range failures {
		key := f.Ref.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, key)
	}
	return apperrors.PartialSyncFailure(refs)
}

// DanglingEdge is an edge whose counterpart no longer exists
type DanglingEdge struct {
	Holder      Reference `json:"holder"`
	Counterpart Reference `json:"counterpart"`
}

// OrphanReport summarizes an orphan sweep
type OrphanReport struct {
	DryRun             bool           `json:"dryRun"`
	NodesScanned       int            `json:"nodesScanned"`
	AssignmentsScanned int            `json:"assignmentsScanned"`
	DanglingEdges      []DanglingEdge `json:"danglingEdges"`
	OrphanAssignments  []uuid.UUID    `json:"orphanAssignments"`
	EdgesRemoved       int            `json:"edgesRemoved"`
	AssignmentsRemoved int            `json:"assignmentsRemoved"`
	Failures           []SyncFailure  `json:"failures,omitempty"`
}

// UpdateOptions controls how a primary organization or person write is applied
type UpdateOptions struct {
	// ReplaceEdges writes the embedded edge list along with the scalar fields
	ReplaceEdges bool
	// ExpectedVersion makes the write fail with CONFLICT when the stored version differs
	ExpectedVersion *int64
}
