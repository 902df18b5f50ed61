package event

import (
	"strings"
	"time"
)

// Type identifies the kind of a field event on the wire.
type Type string

// Panel lifecycle events.
const (
	// TypeSolarPanelCreated records a panel placed on the field.
	TypeSolarPanelCreated Type = "v1.SolarPanelCreated"
	// TypeSolarPanelDeleted records a panel removed from the field.
	TypeSolarPanelDeleted Type = "v1.SolarPanelDeleted"
)

// Event represents an immutable entry in the field journal.
type Event struct {
	// Seq is the position in the journal (starts at 1). Assigned on append.
	Seq uint64
	// Hash is the content hash of the event. Assigned on append.
	Hash string
	// PrevHash is the chain hash of the preceding event.
	PrevHash string
	// ChainHash links this event to its predecessor.
	ChainHash string
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// EntityID is the panel the event is about.
	EntityID string
	// PayloadJSON holds the kind-specific fields.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Known reports whether t is one of the declared types.
func (t Type) Known() bool {
	switch t {
	case TypeSolarPanelCreated, TypeSolarPanelDeleted:
		return true
	default:
		return false
	}
}
