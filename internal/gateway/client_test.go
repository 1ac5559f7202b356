package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarimov/event-gateway/internal/model"
)

func testMessage() model.OutboxMessage {
	return model.OutboxMessage{
		ID:             "01J0TESTMSG0000000000000AB",
		RegistrationID: "01J0TESTREG0000000000000AB",
		Payload:        []byte(`{"id":"01J0TESTMSG0000000000000AB","owner_id":"own-1","email":"a@b.com","message":"hi"}`),
	}
}

func TestClientDeliverSuccess(t *testing.T) {
	var gotAuth, gotKey, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token", time.Second, 3, 1000)
	msg := testMessage()

	err := c.Deliver(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotAuth)
	assert.Equal(t, msg.ID, gotKey)
	assert.Equal(t, "application/json", gotCT)
}

func TestClientDeliverTransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second, 10, 1000)

	err := c.Deliver(context.Background(), testMessage())
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestClientDeliverPermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second, 10, 1000)

	err := c.Deliver(context.Background(), testMessage())
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestStatusErrorPermanent(t *testing.T) {
	assert.True(t, (&StatusError{Code: 400}).Permanent())
	assert.True(t, (&StatusError{Code: 422}).Permanent())
	assert.False(t, (&StatusError{Code: 408}).Permanent())
	assert.False(t, (&StatusError{Code: 429}).Permanent())
	assert.False(t, (&StatusError{Code: 500}).Permanent())
	assert.False(t, (&StatusError{Code: 503}).Permanent())
}

func TestClientBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second, 2, 60000)
	msg := testMessage()

	require.Error(t, c.Deliver(context.Background(), msg))
	require.Error(t, c.Deliver(context.Background(), msg))

	// threshold reached: third call is rejected without hitting the wire
	err := c.Deliver(context.Background(), msg)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, int64(2), calls.Load())
}
