package model

import (
	"strings"
	"time"
)

type EventStatus string

const (
	EventStatusOpen   EventStatus = "open"
	EventStatusClosed EventStatus = "closed"
)

func (s EventStatus) String() string { return string(s) }

func (s EventStatus) Valid() bool {
	return s == EventStatusOpen || s == EventStatusClosed
}

// ParseEventStatus normalizes input; empty => open.
// Returns (value, true) if valid; otherwise (open, false).
func ParseEventStatus(s string) (EventStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return EventStatusOpen, true
	case "closed":
		return EventStatusClosed, true
	default:
		return EventStatusOpen, false
	}
}

// Place is a venue mirrored from the upstream feed. The id is assigned
// upstream; local rows are never created by user action.
type Place struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Event is the local mirror of an upstream event. Mutated only by the
// reconciler; id equality with the upstream record is the merge key.
type Event struct {
	ID                   string      `db:"id" json:"id"`
	Name                 string      `db:"name" json:"name"`
	EventTime            time.Time   `db:"event_time" json:"event_time"`
	Status               EventStatus `db:"status" json:"status"`
	PlaceID              *string     `db:"place_id" json:"-"`
	PlaceName            *string     `db:"place_name" json:"place_name,omitempty"`
	RegistrationDeadline *time.Time  `db:"registration_deadline" json:"registration_deadline,omitempty"`
	ChangedAt            time.Time   `db:"changed_at" json:"changed_at"`
}

// OpenForRegistration reports whether a registration may be accepted now.
func (e Event) OpenForRegistration(now time.Time) bool {
	if e.Status != EventStatusOpen {
		return false
	}
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return false
	}
	return true
}
