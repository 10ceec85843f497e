// Package pg is the PostgreSQL backend: connection pooling with retries,
// goose migrations embedded in the binary, a tenant.Store over the tenants
// table and an isolation.Store of JSONB documents.
//
// Every document row carries a tenant_id column. List queries always render
// the scope's tenant as a bound parameter:
//
//	SELECT tenant_id, data FROM records
//	WHERE collection = $1 AND tenant_id = $2 AND data->>$3 = $4
//	ORDER BY data->$5 DESC, id ASC LIMIT $6
//
// Usage:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//
//	tenants := pg.NewTenantStore(pool)
//	products := isolation.NewRepository(enforcer, pg.NewDocumentStore[*Product](pool, "products"), "product")
package pg
