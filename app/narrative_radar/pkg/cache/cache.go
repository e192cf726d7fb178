package cache

import (
	"sync"
	"time"
)

type stamp struct {
	key string
	ts  time.Time
}

type item[V any] struct {
	value V
	ts    time.Time
}

// Cache 按写入时间淘汰的定长缓存，超过 TTL 或容量时丢弃最早的条目
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]item[V]
	order    []stamp
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// New 创建缓存
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache[V]{
		items:    make(map[string]item[V], capacity),
		order:    make([]stamp, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get 读取未过期的值
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || c.now().Sub(it.ts) > c.ttl {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set 写入值，同一个键重复写入会刷新时间
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = item[V]{value: value, ts: now}
	c.order = append(c.order, stamp{key: key, ts: now})
	c.compact(now)
}

// Len 当前条目数（可能包含尚未清理的过期条目）
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff) || c.stale(c.order[0])) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if it, ok := c.items[oldest.key]; ok && it.ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}

// stale 该顺序记录已被同键的新写入取代
func (c *Cache[V]) stale(s stamp) bool {
	it, ok := c.items[s.key]
	return !ok || !it.ts.Equal(s.ts)
}
