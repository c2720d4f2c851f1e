// Package cache кеш ключ-значение с TTL, ограниченным размером и FIFO вытеснением.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultTTL     = 30 * time.Second
	DefaultMaxSize = 100
)

// Options настройки кеша
type Options struct {
	TTL     time.Duration
	MaxSize int
	// Now источник времени, по умолчанию time.Now
	Now func() time.Time
	// OnLookup вызывается на каждый Get (hit = найдено и не истекло)
	OnLookup func(hit bool)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	elem      *list.Element
}

// Cache TTL кеш. Истёкшие записи удаляются лениво при чтении или через Sweep.
// При заполнении вытесняется самая старая по времени вставки запись (FIFO, не LRU).
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxSize  int
	now      func() time.Time
	onLookup func(bool)
	entries  map[K]*entry[K, V]
	order    *list.List
}

// New создаёт кеш
func New[K comparable, V any](opts Options) *Cache[K, V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Cache[K, V]{
		ttl:      opts.TTL,
		maxSize:  opts.MaxSize,
		now:      opts.Now,
		onLookup: opts.OnLookup,
		entries:  make(map[K]*entry[K, V]),
		order:    list.New(),
	}
}

// Get возвращает значение, если оно есть и не истекло
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	value, ok := c.get(key)
	c.mu.Unlock()

	if c.onLookup != nil {
		c.onLookup(ok)
	}
	return value, ok
}

func (c *Cache[K, V]) get(key K) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(e)
		return zero, false
	}
	return e.value, true
}

// Set сохраняет значение. Необязательный ttl переопределяет TTL по умолчанию.
// Перезапись существующего ключа не меняет его место в очереди вытеснения.
func (c *Cache[K, V]) Set(key K, value V, ttl ...time.Duration) {
	d := c.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(d)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry[K, V]))
	}

	e := &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
}

// Invalidate удаляет ключ
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

// InvalidateFunc удаляет все ключи, для которых match вернул true, и возвращает их число
func (c *Cache[K, V]) InvalidateFunc(match func(key K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if match(key) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// InvalidateAll очищает кеш
func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.order.Init()
}

// Sweep удаляет все истёкшие записи и возвращает их число
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry[K, V])
		if now.After(e.expiresAt) {
			c.remove(e)
			removed++
		}
		el = next
	}
	return removed
}

// Len число записей, включая ещё не вычищенные истёкшие
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) remove(e *entry[K, V]) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}
