package isolation

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrymomot/storefront/pkg/cache"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// CacheBackend is a shared key-value cache (in-process or Redis). Keys it
// receives are always the string form of a ScopedKey.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by backends that can drop all keys of a prefix.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// ScopedCache is the only way application code reaches the shared cache.
type ScopedCache struct {
	enforcer *Enforcer
	backend  CacheBackend
	ttl      time.Duration
}

// NewScopedCache wraps backend. ttl is the default entry lifetime.
func NewScopedCache(e *Enforcer, backend CacheBackend, ttl time.Duration) *ScopedCache {
	return &ScopedCache{enforcer: e, backend: backend, ttl: ttl}
}

func (c *ScopedCache) Get(ctx context.Context, rc reqctx.Context, domainKey string) ([]byte, bool, error) {
	key, err := c.key(ctx, rc, OpCacheGet, domainKey)
	if err != nil {
		return nil, false, err
	}
	return c.backend.Get(ctx, key.String())
}

func (c *ScopedCache) Set(ctx context.Context, rc reqctx.Context, domainKey string, value []byte) error {
	return c.SetWithTTL(ctx, rc, domainKey, value, c.ttl)
}

func (c *ScopedCache) SetWithTTL(ctx context.Context, rc reqctx.Context, domainKey string, value []byte, ttl time.Duration) error {
	key, err := c.key(ctx, rc, OpCacheSet, domainKey)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, key.String(), value, ttl)
}

func (c *ScopedCache) Delete(ctx context.Context, rc reqctx.Context, domainKey string) error {
	key, err := c.key(ctx, rc, OpCacheDelete, domainKey)
	if err != nil {
		return err
	}
	return c.backend.Delete(ctx, key.String())
}

// Purge drops every entry of the caller's tenant. Backends without prefix
// deletion return an error.
func (c *ScopedCache) Purge(ctx context.Context, rc reqctx.Context) error {
	scope, err := c.enforcer.Scope(ctx, rc, OpCacheDelete)
	if err != nil {
		return err
	}
	pd, ok := c.backend.(PrefixDeleter)
	if !ok {
		return fmt.Errorf("isolation: cache backend %T cannot purge by prefix", c.backend)
	}
	return pd.DeletePrefix(ctx, TenantPrefix(scope.tenantID))
}

func (c *ScopedCache) key(ctx context.Context, rc reqctx.Context, op, domainKey string) (ScopedKey, error) {
	scope, err := c.enforcer.Scope(ctx, rc, op)
	if err != nil {
		return ScopedKey{}, err
	}
	return scope.key(domainKey)
}

// GetJSON reads and decodes a cached value. When V reports a tenant id, an
// entry owned by another tenant is dropped and reported as a violation; the
// error matches both ErrNotFound and ErrCrossTenantViolation.
func GetJSON[V any](ctx context.Context, c *ScopedCache, rc reqctx.Context, domainKey string) (V, bool, error) {
	var v V
	raw, ok, err := c.Get(ctx, rc, domainKey)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("isolation: decode cached %q: %w", domainKey, err)
	}
	if owner, owned := cachedOwner(v); owned && owner != rc.TenantID() {
		var zero V
		if err := c.Delete(ctx, rc, domainKey); err != nil {
			c.enforcer.logger.WarnContext(ctx, "isolation: drop foreign cache entry failed", logger.Error(err))
		}
		verr := c.enforcer.violation(ctx, rc, OpCacheGet, owner, "cache", domainKey)
		return zero, false, fmt.Errorf("%w: %w", ErrNotFound, verr)
	}
	return v, true, nil
}

func cachedOwner(v any) (string, bool) {
	o, ok := v.(interface{ GetTenantID() string })
	if !ok {
		return "", false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "", false
	}
	return o.GetTenantID(), true
}

// SetJSON encodes and caches a value with the cache's default TTL.
func SetJSON[V any](ctx context.Context, c *ScopedCache, rc reqctx.Context, domainKey string, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("isolation: encode %q: %w", domainKey, err)
	}
	return c.Set(ctx, rc, domainKey, raw)
}

// MemoryCache is an in-process CacheBackend over a bounded LRU.
type MemoryCache struct {
	lru *cache.LRUCache[string, []byte]
}

func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{lru: cache.NewLRUCache[string, []byte](capacity)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.PutWithTTL(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	m.lru.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	return nil
}
