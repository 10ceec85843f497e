// Package mongo is the MongoDB backend: client construction with retries, a
// tenant-scoped isolation.Store over a collection and the audit event storage.
//
// Records are stored as {_id, tenant_id, data}; data holds the record in its
// JSON field naming. Every filter the Collection sends starts with tenant_id:
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil { ... }
//	products := mongo.NewCollection[*Product](db, "products")
//	_ = products.EnsureIndexes(ctx)
//	repo := isolation.NewRepository(enforcer, products, "product")
//
//	auditLog := audit.NewLogger(audit.NewAsyncWriter(mongo.NewAuditStorage(db, cfg.AuditCollection), audit.AsyncOptions{}))
package mongo
