package searxng

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
)

func TestTimeRange(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mk := func(days int) *search.Window {
		return &search.Window{Start: now.AddDate(0, 0, -days), End: now}
	}
	assert.Equal(t, "", timeRange(nil, now))
	assert.Equal(t, "day", timeRange(mk(1), now))
	assert.Equal(t, "week", timeRange(mk(7), now))
	assert.Equal(t, "month", timeRange(mk(14), now))
	assert.Equal(t, "year", timeRange(mk(90), now))
}

func TestSearchFiltersAndCaps(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "news", r.URL.Query().Get("categories"))
		assert.Equal(t, "week", r.URL.Query().Get("time_range"))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"in","url":"https://a.com/1","publishedDate":"2025-01-30T10:00:00"},
			{"title":"out","url":"https://a.com/2","publishedDate":"2024-12-01T10:00:00"},
			{"title":"undated","url":"https://a.com/3"},
			{"title":"extra","url":"https://a.com/4"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5)
	c.now = func() time.Time { return now }

	resp, err := c.Search(context.Background(), &search.Request{
		Query:      "q",
		MaxResults: 2,
		Window:     &search.Window{Start: now.AddDate(0, 0, -7), End: now},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "in", resp.Results[0].Title)
	assert.Equal(t, "undated", resp.Results[1].Title)
}
