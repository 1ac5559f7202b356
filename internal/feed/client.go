// Package feed holds the client for the upstream event feed, the
// system-of-record the reconciler mirrors locally.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PlaceRecord is the venue sub-object of a feed event.
type PlaceRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is one upstream event as served by the feed.
type Record struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	EventTime            time.Time    `json:"event_time"`
	Status               string       `json:"status"`
	Place                *PlaceRecord `json:"place"`
	RegistrationDeadline *time.Time   `json:"registration_deadline"`
}

type page struct {
	Results []Record `json:"results"`
	Next    *string  `json:"next"`
}

// Client fetches the paginated feed. One long-lived http.Client is
// shared across runs.
type Client struct {
	url    string
	token  string
	client *http.Client
}

func NewClient(feedURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		url:    feedURL,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Query narrows the feed scope. Zero value means a full walk.
type Query struct {
	ChangedSince *time.Time
}

// FetchAll walks every page of the feed and returns the concatenated
// records. A transport or parse failure aborts the walk.
func (c *Client) FetchAll(ctx context.Context, q Query) ([]Record, error) {
	next, err := c.firstURL(q)
	if err != nil {
		return nil, err
	}

	var all []Record
	for next != "" {
		pg, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		all = append(all, pg.Results...)

		next = ""
		if pg.Next != nil {
			next = *pg.Next
		}
	}

	return all, nil
}

func (c *Client) firstURL(q Query) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("feed url: %w", err)
	}

	if q.ChangedSince != nil {
		vals := u.Query()
		vals.Set("changed_since", q.ChangedSince.UTC().Format("2006-01-02"))
		u.RawQuery = vals.Encode()
	}

	return u.String(), nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("feed status=%d url=%s", res.StatusCode, pageURL)
	}

	var pg page
	if err := json.NewDecoder(res.Body).Decode(&pg); err != nil {
		return nil, fmt.Errorf("feed decode: %w", err)
	}

	return &pg, nil
}
