package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storefront/pkg/tenant"
)

// errStaleFill aborts a fill whose generation was overtaken by an Invalidate.
var errStaleFill = errors.New("redis: tenant cache fill is stale")

// TenantCache is a tenant.Cache shared by every instance of the service.
// Entries are JSON under "{prefix}tenant:key:{key}"; a set per tenant id
// records which keys hold that tenant so Invalidate can drop all aliases.
// The invalidation counter lives in "{prefix}tenant:gen" so fills are
// ordered against invalidations across processes.
type TenantCache struct {
	db     redis.UniversalClient
	prefix string
}

func NewTenantCache(client redis.UniversalClient, cfg Config) *TenantCache {
	return &TenantCache{db: client, prefix: cfg.KeyPrefix}
}

func (c *TenantCache) entryKey(key string) string { return c.prefix + "tenant:key:" + key }
func (c *TenantCache) indexKey(id string) string  { return c.prefix + "tenant:idx:" + id }
func (c *TenantCache) genKey() string             { return c.prefix + "tenant:gen" }

// Get treats any Redis error as a miss; the registry then reads the store.
func (c *TenantCache) Get(ctx context.Context, key string) (*tenant.Tenant, bool) {
	raw, err := c.db.Get(ctx, c.entryKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	var t tenant.Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false
	}
	return &t, true
}

// Generation returns 0 until the first invalidation.
func (c *TenantCache) Generation(ctx context.Context) (uint64, error) {
	return readGeneration(ctx, c.db, c.genKey())
}

// Set writes the entry in a transaction guarded by WATCH on the generation
// key: it is dropped when the generation differs from gen, or changes before
// EXEC.
func (c *TenantCache) Set(ctx context.Context, key string, t *tenant.Tenant, ttl time.Duration, gen uint64) (bool, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return false, err
	}
	err = c.db.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, c.genKey())
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.entryKey(key), raw, ttl)
			p.SAdd(ctx, c.indexKey(t.ID), key)
			if ttl > 0 {
				p.Expire(ctx, c.indexKey(t.ID), ttl)
			}
			return nil
		})
		return err
	}, c.genKey())

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

// Invalidate advances the generation before reading the alias index. Fills
// that committed earlier are in the index and get deleted; fills still
// pending see the new generation and abort.
func (c *TenantCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.db.Incr(ctx, c.genKey()).Err(); err != nil {
		return err
	}
	keys, err := c.db.SMembers(ctx, c.indexKey(tenantID)).Result()
	if err != nil {
		return err
	}
	del := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		del = append(del, c.entryKey(k))
	}
	del = append(del, c.indexKey(tenantID))
	return c.db.Del(ctx, del...).Err()
}

func readGeneration(ctx context.Context, db redis.Cmdable, key string) (uint64, error) {
	gen, err := db.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}
