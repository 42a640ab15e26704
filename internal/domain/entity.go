package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EntityKind identifies a collection that can hold relationship edges
type EntityKind string

const (
	KindOrganization EntityKind = "organization"
	KindPerson       EntityKind = "person"
	KindAssignment   EntityKind = "assignment"
)

// IsValid checks if the kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case KindOrganization, KindPerson, KindAssignment:
		return true
	}
	return false
}

// IsNode reports whether entities of this kind embed relationship edges
func (k EntityKind) IsNode() bool {
	return k == KindOrganization || k == KindPerson
}

// Counterpart returns the kind on the other side of an edge
func (k EntityKind) Counterpart() EntityKind {
	switch k {
	case KindOrganization:
		return KindPerson
	case KindPerson:
		return KindOrganization
	}
	return ""
}

// Collection returns the store collection (or table) name for the kind
func (k EntityKind) Collection() string {
	switch k {
	case KindOrganization:
		return "organizations"
	case KindPerson:
		return "people"
	case KindAssignment:
		return "assignments"
	}
	return ""
}

// EdgeField returns the name of the embedded edge list on entities of this kind
func (k EntityKind) EdgeField() string {
	switch k {
	case KindOrganization:
		return "people"
	case KindPerson:
		return "organizations"
	}
	return ""
}

// ParseEntityKind parses a kind name, accepting collection names too
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "organization", "organizations", "org":
		return KindOrganization, nil
	case "person", "people":
		return KindPerson, nil
	case "assignment", "assignments":
		return KindAssignment, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Reference is a typed pointer to a record in another collection
type Reference struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// Ref builds a reference
func Ref(kind EntityKind, id uuid.UUID) Reference {
	return Reference{Kind: kind, ID: id}
}

// String renders the reference as kind:id
func (r Reference) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// IsZero reports whether the reference is unset
func (r Reference) IsZero() bool {
	return r.Kind == "" && r.ID == uuid.Nil
}

// Validate checks the reference points at a known kind with a non-nil id
func (r Reference) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid reference kind %q", r.Kind)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("reference to %s has no id", r.Kind)
	}
	return nil
}
