package dto

import (
	"github.com/rolodex/rolodex/api/internal/domain"
)

// SyncRelationshipsRequest replaces an entity's whole relationship list.
// An empty Edges clears it.
type SyncRelationshipsRequest struct {
	Edges   []domain.EdgeInput `json:"edges" validate:"dive"`
	Version *int64             `json:"version,omitempty"`
}

// SyncResponse is the 207 body returned when the primary write committed but
// some counterpart updates did not.
type SyncResponse struct {
	Data         any                  `json:"data"`
	SyncFailures []domain.SyncFailure `json:"syncFailures"`
}

// DeleteResponse reports a cascade delete. Unsynced lists references the
// cascade could not remove.
type DeleteResponse struct {
	Message        string   `json:"message"`
	CascadeDeleted int64    `json:"cascadeDeleted"`
	Unsynced       []string `json:"unsynced,omitempty"`
}

// ReconcileResponse reports a repair run
type ReconcileResponse struct {
	Data         *domain.Node         `json:"data"`
	Diff         domain.EdgeDiff      `json:"diff"`
	SyncFailures []domain.SyncFailure `json:"syncFailures,omitempty"`
}

// ListResponse wraps a collection without pagination
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}
