package model

import "time"

// SyncResult is one row of the append-only reconciliation audit log.
// Written once per run, including partial runs, and never mutated.
type SyncResult struct {
	ID           int64     `db:"id" json:"id"`
	SyncDate     time.Time `db:"sync_date" json:"sync_date"`
	AddedCount   int       `db:"added_count" json:"added_count"`
	UpdatedCount int       `db:"updated_count" json:"updated_count"`
	Error        *string   `db:"error" json:"error,omitempty"`
}

// DeliveryAttempt is one dispatcher attempt, recorded to the ClickHouse
// audit log. Best-effort: losing a row here never blocks delivery.
type DeliveryAttempt struct {
	MessageID      string    `db:"message_id" json:"message_id"`
	RegistrationID string    `db:"registration_id" json:"registration_id"`
	Sink           string    `db:"sink" json:"sink"`
	Outcome        string    `db:"outcome" json:"outcome"` // sent | retry | failed
	Error          string    `db:"error" json:"error,omitempty"`
	Attempt        int       `db:"attempt" json:"attempt"`
	Timestamp      time.Time `db:"ts" json:"ts"`
}
