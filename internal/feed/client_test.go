package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllSinglePage(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id":         "ev-1",
					"name":       "Conference",
					"event_time": "2026-09-10T18:00:00Z",
					"status":     "open",
					"place":      map[string]any{"id": "pl-1", "name": "Hall"},
				},
				{
					"id":         "ev-2",
					"name":       "Workshop",
					"event_time": "2026-09-11T10:00:00Z",
					"status":     "closed",
					"place":      nil,
				},
			},
			"next": nil,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "feed-token", time.Second)

	recs, err := c.FetchAll(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "feed-token", gotAuth)
	assert.Equal(t, "ev-1", recs[0].ID)
	require.NotNil(t, recs[0].Place)
	assert.Equal(t, "pl-1", recs[0].Place.ID)
	assert.Nil(t, recs[1].Place)
	assert.Equal(t, "closed", recs[1].Status)
}

func TestFetchAllWalksPagination(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"id": "ev-3", "name": "Third", "event_time": "2026-09-12T10:00:00Z", "status": "open"},
				},
				"next": nil,
			})
			return
		}
		next := srv.URL + "/?page=2"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": "ev-1", "name": "First", "event_time": "2026-09-10T10:00:00Z", "status": "open"},
				{"id": "ev-2", "name": "Second", "event_time": "2026-09-11T10:00:00Z", "status": "open"},
			},
			"next": next,
		})
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)

	recs, err := c.FetchAll(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "ev-3", recs[2].ID)
}

func TestFetchAllChangedSinceParam(t *testing.T) {
	var gotSince string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("changed_since")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}, "next": nil})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	since := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

	_, err := c.FetchAll(context.Background(), Query{ChangedSince: &since})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-20", gotSince)
}

func TestFetchAllStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)

	_, err := c.FetchAll(context.Background(), Query{})
	assert.Error(t, err)
}

func TestFetchAllParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)

	_, err := c.FetchAll(context.Background(), Query{})
	assert.Error(t, err)
}
