package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMicroBreakerClosedByDefault(t *testing.T) {
	b := NewMicroBreaker(3, time.Minute)
	assert.True(t, b.Ready())
	assert.True(t, b.TryAcquire())
}

func TestMicroBreakerOpensAtThreshold(t *testing.T) {
	b := NewMicroBreaker(2, time.Minute)

	b.OnFailure()
	assert.True(t, b.Ready())

	b.OnFailure()
	assert.False(t, b.Ready())
	assert.False(t, b.TryAcquire())
}

func TestMicroBreakerHalfOpenProbe(t *testing.T) {
	b := NewMicroBreaker(1, 10*time.Millisecond)

	b.OnFailure()
	assert.False(t, b.TryAcquire())

	time.Sleep(20 * time.Millisecond)

	// one probe allowed, concurrent acquires rejected while it runs
	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())

	// failed probe re-opens
	b.OnFailure()
	assert.False(t, b.TryAcquire())
}

func TestMicroBreakerRecoversOnSuccess(t *testing.T) {
	b := NewMicroBreaker(1, 10*time.Millisecond)

	b.OnFailure()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, b.TryAcquire())
	b.OnSuccess()

	assert.True(t, b.Ready())
	assert.True(t, b.TryAcquire())
}
