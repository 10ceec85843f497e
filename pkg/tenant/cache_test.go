package tenant_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/tenant"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores and retrieves a copy", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(10)
		orig := newTenant("T-1", "acme", tenant.StatusActive)
		fill(t, cache, "acme", orig, time.Hour)

		got, ok := cache.Get(ctx, "acme")
		require.True(t, ok)
		assert.Equal(t, orig, got)

		got.Status = tenant.StatusDeleted
		again, ok := cache.Get(ctx, "acme")
		require.True(t, ok)
		assert.Equal(t, tenant.StatusActive, again.Status)
	})

	t.Run("returns false for missing key", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(10)
		got, ok := cache.Get(ctx, "missing")
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("respects TTL expiration", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(10)
		fill(t, cache, "acme", newTenant("T-1", "acme", tenant.StatusActive), 10*time.Millisecond)

		_, ok := cache.Get(ctx, "acme")
		require.True(t, ok)

		time.Sleep(20 * time.Millisecond)
		_, ok = cache.Get(ctx, "acme")
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(2)
		fill(t, cache, "a", newTenant("T-a", "a", tenant.StatusActive), time.Hour)
		fill(t, cache, "b", newTenant("T-b", "b", tenant.StatusActive), time.Hour)

		_, ok := cache.Get(ctx, "a")
		require.True(t, ok)

		fill(t, cache, "c", newTenant("T-c", "c", tenant.StatusActive), time.Hour)

		_, ok = cache.Get(ctx, "b")
		assert.False(t, ok, "b was least recently used")
		_, ok = cache.Get(ctx, "a")
		assert.True(t, ok)
		_, ok = cache.Get(ctx, "c")
		assert.True(t, ok)
	})

	t.Run("invalidate drops every alias of a tenant", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(10)
		acme := &tenant.Tenant{ID: "T-1", RoutingKey: "acme", CustomDomain: "shop.acme.com", Status: tenant.StatusActive}
		other := newTenant("T-2", "globex", tenant.StatusActive)
		fill(t, cache, "acme", acme, time.Hour)
		fill(t, cache, "shop.acme.com", acme, time.Hour)
		fill(t, cache, "globex", other, time.Hour)

		require.NoError(t, cache.Invalidate(ctx, "T-1"))

		_, ok := cache.Get(ctx, "acme")
		assert.False(t, ok)
		_, ok = cache.Get(ctx, "shop.acme.com")
		assert.False(t, ok)
		_, ok = cache.Get(ctx, "globex")
		assert.True(t, ok)
	})

	t.Run("fills read before an invalidation are dropped", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(10)
		gen, err := cache.Generation(ctx)
		require.NoError(t, err)

		require.NoError(t, cache.Invalidate(ctx, "T-1"))
		stored, err := cache.Set(ctx, "acme", newTenant("T-1", "acme", tenant.StatusActive), time.Hour, gen)
		require.NoError(t, err)
		assert.False(t, stored)
		_, ok := cache.Get(ctx, "acme")
		assert.False(t, ok)

		next, err := cache.Generation(ctx)
		require.NoError(t, err)
		assert.Greater(t, next, gen)
		fill(t, cache, "acme", newTenant("T-1", "acme", tenant.StatusActive), time.Hour)
		_, ok = cache.Get(ctx, "acme")
		assert.True(t, ok)
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()

		cache := tenant.NewMemoryCache(50)
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := fmt.Sprintf("t%d", i%5)
				for range 100 {
					gen, _ := cache.Generation(ctx)
					_, _ = cache.Set(ctx, key, newTenant("T-"+key, key, tenant.StatusActive), time.Minute, gen)
					cache.Get(ctx, key)
					if i%7 == 0 {
						_ = cache.Invalidate(ctx, "T-"+key)
					}
				}
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, cache.Len(), 5)
	})
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	var cache tenant.Cache = tenant.NoOpCache{}
	stored, err := cache.Set(context.Background(), "acme", newTenant("T-1", "acme", tenant.StatusActive), time.Hour, 0)
	require.NoError(t, err)
	assert.False(t, stored)
	_, ok := cache.Get(context.Background(), "acme")
	assert.False(t, ok)
}

// fill stores tn at the cache's current generation and requires the write.
func fill(t *testing.T, cache tenant.Cache, key string, tn *tenant.Tenant, ttl time.Duration) {
	t.Helper()
	gen, err := cache.Generation(context.Background())
	require.NoError(t, err)
	stored, err := cache.Set(context.Background(), key, tn, ttl, gen)
	require.NoError(t, err)
	require.True(t, stored)
}
