package model

import (
	"encoding/json"
	"time"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusClaimed OutboxStatus = "claimed" // lease held by a dispatcher instance
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed" // permanent error or retry cap hit
)

func (s OutboxStatus) String() string { return string(s) }

func (s OutboxStatus) Valid() bool {
	return s == OutboxStatusPending || s == OutboxStatusClaimed ||
		s == OutboxStatusSent || s == OutboxStatusFailed
}

// Notification is the payload delivered to the external gateway. The ID
// doubles as the idempotency key: duplicate deliveries carry the same id
// so the receiver can dedupe.
type Notification struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// OutboxMessage is a durable intent-to-notify row. Created in the same
// transaction as its registration; a row transitions pending -> sent at
// most once and never reverts.
type OutboxMessage struct {
	ID             string       `db:"id"`
	RegistrationID string       `db:"registration_id"`
	Payload        []byte       `db:"payload"` // rendered Notification JSON
	Status         OutboxStatus `db:"status"`
	Attempts       int          `db:"attempts"`
	NextAttemptAt  time.Time    `db:"next_attempt_at"`
	ClaimedAt      *time.Time   `db:"claimed_at"`
	LastError      *string      `db:"last_error"`
	CreatedAt      time.Time    `db:"created_at"`
	SentAt         *time.Time   `db:"sent_at"`
}

// Notification decodes the rendered payload.
func (m OutboxMessage) Notification() (Notification, error) {
	var n Notification
	err := json.Unmarshal(m.Payload, &n)
	return n, err
}
