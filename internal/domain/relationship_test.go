package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

func edge(id uuid.UUID, role string) RelationshipEdge {
	return RelationshipEdge{CounterpartID: id, Role: role}
}

func TestDiffEdges(t *testing.T) {
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name      string
		existing  []RelationshipEdge
		requested []RelationshipEdge
		want      EdgeDiff
	}{
		{
			name:      "add update remove",
			existing:  []RelationshipEdge{edge(p1, "Engineer"), edge(p2, "Engineer")},
			requested: []RelationshipEdge{edge(p2, "CTO"), edge(p3, "Advisor")},
			want: EdgeDiff{
				ToAdd:     []RelationshipEdge{edge(p3, "Advisor")},
				ToRemove:  []RelationshipEdge{edge(p1, "Engineer")},
				ToUpdate:  []RelationshipEdge{edge(p2, "CTO")},
				Unchanged: []RelationshipEdge{},
			},
		},
		{
			name:      "empty requested removes everything",
			existing:  []RelationshipEdge{edge(p1, "a"), edge(p2, "b")},
			requested: nil,
			want: EdgeDiff{
				ToAdd:     []RelationshipEdge{},
				ToRemove:  []RelationshipEdge{edge(p1, "a"), edge(p2, "b")},
				ToUpdate:  []RelationshipEdge{},
				Unchanged: []RelationshipEdge{},
			},
		},
		{
			name:      "duplicate requested id last wins",
			existing:  nil,
			requested: []RelationshipEdge{edge(p1, "first"), edge(p2, "x"), edge(p1, "last")},
			want: EdgeDiff{
				ToAdd:     []RelationshipEdge{edge(p1, "last"), edge(p2, "x")},
				ToRemove:  []RelationshipEdge{},
				ToUpdate:  []RelationshipEdge{},
				Unchanged: []RelationshipEdge{},
			},
		},
		{
			name:      "cached name differences are not updates",
			existing:  []RelationshipEdge{{CounterpartID: p1, CounterpartName: "Old", Role: "r"}},
			requested: []RelationshipEdge{{CounterpartID: p1, CounterpartName: "New", Role: "r"}},
			want: EdgeDiff{
				ToAdd:     []RelationshipEdge{},
				ToRemove:  []RelationshipEdge{},
				ToUpdate:  []RelationshipEdge{},
				Unchanged: []RelationshipEdge{{CounterpartID: p1, CounterpartName: "New", Role: "r"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffEdges(tt.existing, tt.requested)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DiffEdges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffEdges_DateChangeIsUpdate(t *testing.T) {
	p1 := uuid.New()
	start := DatePtr(NewDate(2020, time.January, 1))

	existing := []RelationshipEdge{edge(p1, "Engineer")}
	requested := []RelationshipEdge{{CounterpartID: p1, Role: "Engineer", StartDate: start}}

	diff := DiffEdges(existing, requested)
	require.Len(t, diff.ToUpdate, 1)
	assert.True(t, SameDate(start, diff.ToUpdate[0].StartDate))
}

func TestDiffEdges_Deterministic(t *testing.T) {
	ids := make([]uuid.UUID, 6)
	for i := range ids {
		ids[i] = uuid.New()
	}
	existing := []RelationshipEdge{edge(ids[0], "a"), edge(ids[1], "b"), edge(ids[2], "c")}
	requested := []RelationshipEdge{edge(ids[2], "c"), edge(ids[1], "B"), edge(ids[3], "d"), edge(ids[4], "e")}

	first := DiffEdges(existing, requested)
	for i := 0; i < 10; i++ {
		assert.Empty(t, cmp.Diff(first, DiffEdges(existing, requested)))
	}
}

func TestDiffEdges_CoversRequestedExactlyOnce(t *testing.T) {
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		ids[i] = uuid.New()
	}
	existing := []RelationshipEdge{edge(ids[0], "a"), edge(ids[1], "b"), edge(ids[2], "c"), edge(ids[3], "d")}
	requested := []RelationshipEdge{edge(ids[1], "b"), edge(ids[2], "changed"), edge(ids[4], "e"), edge(ids[5], "f"), edge(ids[4], "e2")}

	diff := DiffEdges(existing, requested)

	seen := map[uuid.UUID]int{}
	for _, set := range [][]RelationshipEdge{diff.ToAdd, diff.ToUpdate, diff.Unchanged} {
		for _, e := range set {
			seen[e.CounterpartID]++
		}
	}
	for _, e := range DedupeEdges(requested) {
		assert.Equal(t, 1, seen[e.CounterpartID], "requested %s", e.CounterpartID)
	}
	assert.Len(t, seen, len(DedupeEdges(requested)))

	var removed []uuid.UUID
	for _, e := range diff.ToRemove {
		removed = append(removed, e.CounterpartID)
	}
	assert.Equal(t, []uuid.UUID{ids[0], ids[3]}, removed)
	assert.Equal(t, 5, diff.Changes())
}

func TestValidateEdgeDates(t *testing.T) {
	good := RelationshipEdge{
		CounterpartName: "Acme",
		StartDate:       DatePtr(NewDate(2020, 1, 1)),
		EndDate:         DatePtr(NewDate(2021, 1, 1)),
	}
	bad := RelationshipEdge{
		CounterpartName: "Globex",
		StartDate:       DatePtr(NewDate(2022, 1, 1)),
		EndDate:         DatePtr(NewDate(2021, 1, 1)),
	}

	assert.NoError(t, ValidateEdgeDates(KindOrganization, []RelationshipEdge{good}))

	err := ValidateEdgeDates(KindOrganization, []RelationshipEdge{good, bad})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "invalid date range for organization Globex")
}

func TestSyncResult_Err(t *testing.T) {
	var empty *SyncResult
	assert.NoError(t, empty.Err())
	assert.NoError(t, (&SyncResult{}).Err())

	ref := Ref(KindPerson, uuid.New())
	res := &SyncResult{Failures: []SyncFailure{
		NewSyncFailure(ref, SyncOpPush, assert.AnError),
		NewSyncFailure(ref, SyncOpRename, assert.AnError),
	}}
	err := res.Err()
	require.Error(t, err)
	assert.True(t, apperrors.IsPartialSyncFailure(err))
	assert.Equal(t, []string{ref.String()}, apperrors.UnsyncedRefs(err))
}

func TestEdgeEvents(t *testing.T) {
	org := Ref(KindOrganization, uuid.New())
	p1, p2 := uuid.New(), uuid.New()
	diff := DiffEdges([]RelationshipEdge{edge(p1, "a")}, []RelationshipEdge{edge(p2, "b")})

	events := EdgeEvents("owner-1", org, diff)
	require.Len(t, events, 2)
	assert.Equal(t, EventEdgeAdded, events[0].Type)
	assert.Equal(t, Ref(KindPerson, p2), *events[0].Counterpart)
	assert.Equal(t, EventEdgeRemoved, events[1].Type)
	assert.Equal(t, "owner-1", events[1].OwnerID)
}
