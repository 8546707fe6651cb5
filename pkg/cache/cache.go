package cache

import (
	"sync"
	"time"
)

// Item represents a cached item with expiration
type Item[V any] struct {
	Value      V
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item[V]) Expired() bool {
	if item.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > item.Expiration
}

// Options configures a Cache
type Options struct {
	// TTL is the default expiration; zero means items never expire
	TTL time.Duration
	// CleanupInterval starts a janitor goroutine when positive. Call Close to stop it.
	CleanupInterval time.Duration
	// MaxItems bounds the number of entries; zero means unbounded
	MaxItems int
}

// Cache is a thread-safe in-memory cache with expiration
type Cache[V any] struct {
	items             map[string]Item[V]
	mu                sync.RWMutex
	defaultExpiration time.Duration
	maxItems          int
	stop              chan struct{}
	stopOnce          sync.Once
}

// New creates a cache from opts
func New[V any](opts Options) *Cache[V] {
	c := &Cache[V]{
		items:             make(map[string]Item[V]),
		defaultExpiration: opts.TTL,
		maxItems:          opts.MaxItems,
		stop:              make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.startCleanupTimer(opts.CleanupInterval)
	}

	return c
}

// Set adds an item to the cache with the default expiration
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithExpiration(key, value, c.defaultExpiration)
}

// SetWithExpiration adds an item to the cache with a specific expiration time
func (c *Cache[V]) SetWithExpiration(key string, value V, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = time.Now().Add(d).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictOldest()
	}

	c.items[key] = Item[V]{
		Value:      value,
		Expiration: exp,
	}
}

// Get retrieves an item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found || item.Expired() {
		var zero V
		return zero, false
	}

	return item.Value, true
}

// Delete removes an item from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Flush removes all items from the cache
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]Item[V])
}

// Count returns the number of items in the cache (including expired items)
func (c *Cache[V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine, if any
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) startCleanupTimer(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for k, v := range c.items {
		if v.Expiration > 0 && now > v.Expiration {
			delete(c.items, k)
		}
	}
}

// evictOldest removes the item closest to expiry; items without expiry go last
func (c *Cache[V]) evictOldest() {
	var (
		oldestKey  string
		oldestTime int64
		found      bool
	)
	for k, v := range c.items {
		exp := v.Expiration
		if exp == 0 {
			exp = 1<<63 - 1
		}
		if !found || exp < oldestTime {
			oldestKey, oldestTime, found = k, exp, true
		}
	}
	if !found {
		return
	}

	delete(c.items, oldestKey)
}
