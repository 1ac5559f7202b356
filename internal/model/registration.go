package model

import "time"

// Registration is a visitor's registration for an event. Immutable after
// creation; at most one row may exist per (event_id, email).
type Registration struct {
	ID               string    `db:"id" json:"id"`
	EventID          string    `db:"event_id" json:"event_id"`
	FullName         string    `db:"full_name" json:"full_name"`
	Email            string    `db:"email" json:"email"`
	ConfirmationCode string    `db:"confirmation_code" json:"confirmation_code"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
