// Package gateway holds the HTTP client for the external notification
// gateway. The payload is rendered at enqueue time; delivery needs no
// lookups beyond the outbox row itself.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkarimov/event-gateway/internal/model"
)

// ErrBreakerOpen signals the gateway is being backed off after repeated
// failures; callers treat it as a transient delivery error.
var ErrBreakerOpen = errors.New("gateway breaker open")

// StatusError is a non-2xx gateway response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway status=%d", e.Code)
}

// Permanent reports whether retrying the same payload cannot succeed.
// 408 and 429 are retryable despite being 4xx.
func (e *StatusError) Permanent() bool {
	if e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests {
		return false
	}
	return e.Code >= 400 && e.Code < 500
}

// IsPermanent reports whether err is a delivery failure that retry
// cannot fix (malformed payload rejected by the gateway).
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Permanent()
}

// Client delivers notifications over HTTP. The http.Client is long-lived
// and shared across dispatcher cycles.
type Client struct {
	url    string
	token  string
	client *http.Client
	br     *MicroBreaker
}

func NewClient(url, token string, timeout time.Duration, failThreshold, openForMs int) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &Client{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
		br:     NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (c *Client) Name() string { return "http" }

// Deliver posts the message payload. The message id travels as the
// idempotency key so the gateway can dedupe repeated attempts.
func (c *Client) Deliver(ctx context.Context, msg model.OutboxMessage) error {
	if !c.br.TryAcquire() {
		return ErrBreakerOpen
	}

	if err := c.post(ctx, msg); err != nil {
		c.br.OnFailure()
		return err
	}

	c.br.OnSuccess()

	return nil
}

func (c *Client) post(ctx context.Context, msg model.OutboxMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(msg.Payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Idempotency-Key", msg.ID)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode/100 != 2 {
		return &StatusError{Code: res.StatusCode}
	}

	return nil
}
