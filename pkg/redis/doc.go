// Package redis connects to Redis and provides the shared caches of the
// service: a tenant.Cache for the registry and a byte-value Storage used as
// the backend of isolation.ScopedCache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
//
//	registry := tenant.NewRegistry(store, tenant.WithCache(redis.NewTenantCache(client, cfg)))
//	cache := isolation.NewScopedCache(enforcer, redis.NewStorage(client, cfg), 5*time.Minute)
//
// Storage keys arrive already namespaced by tenant (tenant:{id}:{key}) and are
// stored under cfg.KeyPrefix, so one Redis database can serve several services.
package redis
