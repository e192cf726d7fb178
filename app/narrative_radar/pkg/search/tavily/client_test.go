package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
)

func TestSearchSendsWindow(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[{"title":"T","url":"https://bbc.com/a","content":"c","published_date":"2025-01-02"}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, time.Second)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	resp, err := c.Search(context.Background(), &search.Request{
		Query:      "river cleanup",
		MaxResults: 10,
		Window:     &search.Window{Start: start, End: start.AddDate(0, 0, 7)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://bbc.com/a", resp.Results[0].URL)
	assert.Equal(t, "2025-01-01", got.StartDate)
	assert.Equal(t, "2025-01-08", got.EndDate)
	assert.Equal(t, "news", got.Topic)
	assert.Equal(t, 10, got.MaxResults)
}

func TestSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL, time.Second).Search(context.Background(), &search.Request{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSearchEmptyIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("key", srv.URL, time.Second).Search(context.Background(), &search.Request{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}
