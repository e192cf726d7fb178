package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/cache"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

var page = `<html><head><title>River cleanup</title></head><body>
<nav>menu</nav>
<article><h1>River cleanup</h1>
<p>` + strings.Repeat("Volunteers removed tonnes of plastic from the river banks this weekend. ", 20) + `</p>
<p>` + strings.Repeat("City officials pledged further funding for the cleanup programme. ", 20) + `</p>
</article></body></html>`

func TestExtractUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	x := NewReadability(time.Second, 0, cache.New[Content](10, time.Minute))
	c, err := x.Extract(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Contains(t, c.BodyText, "Volunteers removed")

	_, err = x.Extract(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestExtractTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c, err := NewReadability(time.Second, 40, nil).Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, []rune(c.BodyText), 40)
}

func TestExtractStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewReadability(time.Second, 0, nil).Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, model.ErrUpstream)
}
