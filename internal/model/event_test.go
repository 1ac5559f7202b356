package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEventStatus(t *testing.T) {
	tests := []struct {
		in    string
		want  EventStatus
		valid bool
	}{
		{"open", EventStatusOpen, true},
		{"closed", EventStatusClosed, true},
		{" Closed ", EventStatusClosed, true},
		{"", EventStatusOpen, true},
		{"cancelled", EventStatusOpen, false},
	}

	for _, tt := range tests {
		got, ok := ParseEventStatus(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.valid, ok, "input %q", tt.in)
	}
}

func TestEventOpenForRegistration(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	open := Event{Status: EventStatusOpen}
	assert.True(t, open.OpenForRegistration(now))

	closed := Event{Status: EventStatusClosed}
	assert.False(t, closed.OpenForRegistration(now))

	deadlinePassed := Event{Status: EventStatusOpen, RegistrationDeadline: &past}
	assert.False(t, deadlinePassed.OpenForRegistration(now))

	deadlineAhead := Event{Status: EventStatusOpen, RegistrationDeadline: &future}
	assert.True(t, deadlineAhead.OpenForRegistration(now))
}

func TestOutboxMessageNotification(t *testing.T) {
	m := OutboxMessage{Payload: []byte(`{"id":"m1","owner_id":"o1","email":"a@b.com","message":"hi"}`)}

	n, err := m.Notification()
	assert.NoError(t, err)
	assert.Equal(t, "m1", n.ID)
	assert.Equal(t, "o1", n.OwnerID)
	assert.Equal(t, "a@b.com", n.Email)

	bad := OutboxMessage{Payload: []byte(`{`)}
	_, err = bad.Notification()
	assert.Error(t, err)
}
