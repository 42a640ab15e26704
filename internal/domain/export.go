package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an owner's full data set as written by an export
type Snapshot struct {
	ExportID      uuid.UUID      `json:"exportId"`
	OwnerID       string         `json:"ownerId"`
	ExportedAt    time.Time      `json:"exportedAt"`
	Organizations []Organization `json:"organizations"`
	People        []Person       `json:"people"`
	Assignments   []Assignment   `json:"assignments"`
}

// ExportStatus describes an export request
type ExportStatus struct {
	ID        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Export states
const (
	ExportPending = "pending"
	ExportReady   = "ready"
)

// ExportObjectKey returns the object key a snapshot is stored under
func ExportObjectKey(ownerID string, exportID uuid.UUID) string {
	return fmt.Sprintf("exports/%s/%s.json", ownerID, exportID)
}
