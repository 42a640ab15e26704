package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a relationship change
type EventType string

const (
	EventEdgeAdded     EventType = "edge.added"
	EventEdgeRemoved   EventType = "edge.removed"
	EventEdgeUpdated   EventType = "edge.updated"
	EventEntityRenamed EventType = "entity.renamed"
	EventEntityDeleted EventType = "entity.deleted"
)

// RelationshipEvent is published after a relationship mutation commits
type RelationshipEvent struct {
	ID          uuid.UUID  `json:"id"`
	Type        EventType  `json:"type"`
	OwnerID     string     `json:"ownerId"`
	Entity      Reference  `json:"entity"`
	Counterpart *Reference `json:"counterpart,omitempty"`
	Role        string     `json:"role,omitempty"`
	Name        string     `json:"name,omitempty"`
	Count       int64      `json:"count,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
}

// NewRelationshipEvent stamps a new event
func NewRelationshipEvent(eventType EventType, ownerID string, entity Reference) RelationshipEvent {
	return RelationshipEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OwnerID:    ownerID,
		Entity:     entity,
		OccurredAt: time.Now().UTC(),
	}
}

// EdgeEvents expands a diff into one event per counterpart change
func EdgeEvents(ownerID string, entity Reference, diff EdgeDiff) []RelationshipEvent {
	counterpartKind := entity.Kind.Counterpart()
	events := make([]RelationshipEvent, 0, diff.Changes())
	add := func(t EventType, edges []RelationshipEdge) {
		for _, e := range edges {
			ev := NewRelationshipEvent(t, ownerID, entity)
			cp := Ref(counterpartKind, e.CounterpartID)
			ev.Counterpart = &cp
			ev.Role = e.Role
			events = append(events, ev)
		}
	}
	add(EventEdgeAdded, diff.ToAdd)
	add(EventEdgeUpdated, diff.ToUpdate)
	add(EventEdgeRemoved, diff.ToRemove)
	return events
}
