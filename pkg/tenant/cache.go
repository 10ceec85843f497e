package tenant

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache sits in front of the Store. Keys are normalized routing keys or
// custom domains; implementations keep an index from tenant id to keys so
// that Invalidate can drop every alias of a tenant at once.
type Cache interface {
	// Get retrieves a tenant from cache by key.
	Get(ctx context.Context, key string) (*Tenant, bool)

	// Generation returns the invalidation counter. It changes on every
	// Invalidate, for every process sharing the cache.
	Generation(ctx context.Context) (uint64, error)

	// Set stores a tenant under key with the given TTL, but only while the
	// invalidation counter still equals gen. It reports whether the entry
	// was written.
	Set(ctx context.Context, key string, t *Tenant, ttl time.Duration, gen uint64) (bool, error)

	// Invalidate advances the generation, then removes every entry that
	// belongs to tenantID. No entry of the tenant is reachable once it
	// returns without error, and no fill read before it can land later.
	Invalidate(ctx context.Context, tenantID string) error
}

// DefaultCacheSize is the default maximum number of items in the cache.
const DefaultCacheSize = 1000

type cacheItem struct {
	key       string
	tenant    *Tenant
	expiresAt time.Time
}

// MemoryCache is a bounded LRU cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	byID    map[string]map[string]struct{}
	lru     *list.List
	maxSize int
	gen     uint64
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &MemoryCache{
		items:   make(map[string]*list.Element),
		byID:    make(map[string]map[string]struct{}),
		lru:     list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the cached tenant. Expired entries are dropped on read.
func (c *MemoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*cacheItem)
	if !c.now().Before(item.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return item.tenant.Clone(), true
}

func (c *MemoryCache) Generation(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

// Set stores a copy of t. The least recently used entry is evicted when full.
func (c *MemoryCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration, gen uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false, nil
	}

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	item := &cacheItem{key: key, tenant: t.Clone(), expiresAt: c.now().Add(ttl)}
	c.items[key] = c.lru.PushFront(item)
	if c.byID[t.ID] == nil {
		c.byID[t.ID] = make(map[string]struct{})
	}
	c.byID[t.ID][key] = struct{}{}

	for c.lru.Len() > c.maxSize {
		c.removeElement(c.lru.Back())
	}
	return true, nil
}

// Invalidate drops every key cached for tenantID.
func (c *MemoryCache) Invalidate(_ context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for key := range c.byID[tenantID] {
		if elem, ok := c.items[key]; ok {
			c.removeElement(elem)
		}
	}
	delete(c.byID, tenantID)
	return nil
}

// Len returns the number of cached entries, including expired ones not yet dropped.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Must be called with lock held.
func (c *MemoryCache) removeElement(elem *list.Element) {
	item := c.lru.Remove(elem).(*cacheItem)
	delete(c.items, item.key)
	if keys, ok := c.byID[item.tenant.ID]; ok {
		delete(keys, item.key)
		if len(keys) == 0 {
			delete(c.byID, item.tenant.ID)
		}
	}
}

// NoOpCache disables caching, useful for testing or when caching is unwanted.
type NoOpCache struct{}

func (NoOpCache) Get(context.Context, string) (*Tenant, bool) { return nil, false }

func (NoOpCache) Generation(context.Context) (uint64, error) { return 0, nil }

func (NoOpCache) Set(context.Context, string, *Tenant, time.Duration, uint64) (bool, error) {
	return false, nil
}

func (NoOpCache) Invalidate(context.Context, string) error { return nil }
