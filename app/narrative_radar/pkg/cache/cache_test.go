package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string](10, time.Minute)
	_, ok := c.Get("alpha")
	require.False(t, ok)

	c.Set("alpha", "body")
	v, ok := c.Get("alpha")
	require.True(t, ok)
	require.Equal(t, "body", v)
}

func TestCacheTTLExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("beta", 1)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("beta")
	require.False(t, ok)
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int](1, time.Minute)
	c.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	c.Set("first", 1)
	c.Set("second", 2)

	_, ok := c.Get("first")
	require.False(t, ok)
	v, ok := c.Get("second")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, c.Len())
}

func TestCacheOverwriteKeepsNewest(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int](2, time.Minute)
	c.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	c.Set("k", 1)
	c.Set("k", 2)
	c.Set("other", 3)

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 2, c.Len())
}
