package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCacheGetSet(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](Options{TTL: 30 * time.Second, Now: clock.Now})

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCacheLazyExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](Options{TTL: 30 * time.Second, Now: clock.Now})

	c.Set("default", 1)
	c.Set("short", 2, 5*time.Second)

	clock.Advance(5 * time.Second)
	_, ok := c.Get("short")
	assert.True(t, ok, "entry is valid up to its ttl")

	clock.Advance(time.Second)
	_, ok = c.Get("short")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entry removed on read")

	clock.Advance(25 * time.Second)
	_, ok = c.Get("default")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheFIFOEviction(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](Options{MaxSize: 3, Now: clock.Now})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// чтение не влияет на порядок вытеснения
	_, ok := c.Get("a")
	require.True(t, ok)
	// перезапись тоже
	c.Set("a", 10)

	c.Set("d", 4)

	_, ok = c.Get("a")
	assert.False(t, ok, "oldest inserted key is evicted")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestCacheInvalidate(t *testing.T) {
	c := New[string, int](Options{})
	c.Set("2025-09-01|2025-09-30", 1)
	c.Set("2025-09-10|2025-09-10", 2)
	c.Set("2025-10-01|2025-10-31", 3)

	c.Invalidate("2025-09-10|2025-09-10")
	_, ok := c.Get("2025-09-10|2025-09-10")
	assert.False(t, ok)

	removed := c.InvalidateFunc(func(key string) bool { return key[:7] == "2025-09" })
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())

	c.Set("x", 1)
	v, ok := c.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCacheSweep(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](Options{TTL: 10 * time.Second, Now: clock.Now})

	c.Set("a", 1)
	c.Set("b", 2, time.Minute)
	clock.Advance(11 * time.Second)
	c.Set("c", 3)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 0, c.Sweep())
}

func TestCacheOnLookup(t *testing.T) {
	var hits, misses int
	c := New[string, int](Options{OnLookup: func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}})

	c.Get("a")
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")

	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[string, int](Options{MaxSize: 50})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa(g*1000 + i)
				c.Set(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.Sweep()
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
