package redis_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
	"github.com/dmitrymomot/storefront/pkg/tenant"
)

// connect returns a client and a config with a per-test key prefix, or skips
// when no server is configured.
func connect(t *testing.T) (*goredis.Client, redis.Config) {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	cfg := redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
		KeyPrefix:      "test:" + uuid.NewString()[:8] + ":",
		ScanBatchSize:  2,
	}
	client, err := redis.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, redis.Healthcheck(client)(context.Background()))
	return client, cfg
}

func TestConnectRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	require.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "http://nope"})
	require.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestScopedCacheOverRedis(t *testing.T) {
	client, cfg := connect(t)
	ctx := context.Background()

	cache := isolation.NewScopedCache(isolation.NewEnforcer(), redis.NewStorage(client, cfg), time.Minute)
	t1, err := reqctx.New("T-1", "")
	require.NoError(t, err)
	t2, err := reqctx.New("T-2", "")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, t1, "product:SKU-1", []byte("one")))
	require.NoError(t, cache.Set(ctx, t1, "product:SKU-2", []byte("two")))
	require.NoError(t, cache.Set(ctx, t1, "product:SKU-3", []byte("three")))
	require.NoError(t, cache.Set(ctx, t2, "product:SKU-1", []byte("other")))

	v, ok, err := cache.Get(ctx, t2, "product:SKU-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "other", string(v))

	require.NoError(t, cache.Purge(ctx, t1))
	_, ok, err = cache.Get(ctx, t1, "product:SKU-2")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Get(ctx, t2, "product:SKU-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTenantCache(t *testing.T) {
	client, cfg := connect(t)
	ctx := context.Background()
	cache := redis.NewTenantCache(client, cfg)

	acme := &tenant.Tenant{ID: "T-1", RoutingKey: "acme", CustomDomain: "shop.acme.com", Status: tenant.StatusActive}
	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	for _, key := range []string{"acme", "shop.acme.com"} {
		stored, err := cache.Set(ctx, key, acme, time.Minute, gen)
		require.NoError(t, err)
		require.True(t, stored)
	}

	got, ok := cache.Get(ctx, "shop.acme.com")
	require.True(t, ok)
	assert.Equal(t, "T-1", got.ID)

	require.NoError(t, cache.Invalidate(ctx, "T-1"))
	_, ok = cache.Get(ctx, "acme")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "shop.acme.com")
	assert.False(t, ok)

	stored, err := cache.Set(ctx, "acme", acme, time.Minute, gen)
	require.NoError(t, err)
	assert.False(t, stored, "generation read before the invalidation")
	_, ok = cache.Get(ctx, "acme")
	assert.False(t, ok)
}

// gatedStore holds the first FindByKey after the read until release is closed.
type gatedStore struct {
	*tenant.MemoryStore
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) FindByKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	t, err := s.MemoryStore.FindByKey(ctx, key)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return t, err
}

func TestTenantCacheAcrossInstances(t *testing.T) {
	client, cfg := connect(t)
	ctx := context.Background()

	mem, err := tenant.NewMemoryStore(&tenant.Tenant{ID: "T-1", RoutingKey: "acme", Status: tenant.StatusActive})
	require.NoError(t, err)
	store := &gatedStore{MemoryStore: mem, read: make(chan struct{}), release: make(chan struct{})}

	// Two registries with their own cache clients stand in for two processes.
	x := tenant.NewRegistry(store, tenant.WithCache(redis.NewTenantCache(client, cfg)))
	y := tenant.NewRegistry(store, tenant.WithCache(redis.NewTenantCache(client, cfg)))

	resolved := make(chan *tenant.Tenant, 1)
	go func() {
		got, err := x.Resolve(ctx, "acme")
		assert.NoError(t, err)
		resolved <- got
	}()

	<-store.read
	_, err = tenant.NewAdmin(store, y, nil).Suspend(ctx, "T-1")
	require.NoError(t, err)
	close(store.release)
	<-resolved

	for _, r := range []*tenant.Registry{x, y} {
		got, err := r.Resolve(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusSuspended, got.Status)
	}
}
