// Package isolation enforces that every data operation of a request touches
// only the data of the request's tenant.
//
// Application code never talks to a database, cache or search index directly.
// It goes through the wrappers of this package, each of which takes the
// explicit reqctx.Context of the request:
//
//   - Repository[T] for records. List queries get the tenant predicate
//     injected; by-id reads are checked after the read and a foreign record is
//     reported as ErrNotFound; creates overwrite the tenant id; updates and
//     deletes check the stored record first.
//   - ScopedCache for the shared cache, with keys of the form
//     tenant:{tenantID}:{key}.
//   - ScopedIndex for the shared search index.
//
// A rejected cross-tenant attempt returns ErrCrossTenantViolation, is written
// to the audit log with the attempted tenant, and increments
// storefront_cross_tenant_violations_total. A call without a request context
// returns ErrMissingContext.
//
// System jobs start from reqctx.NewSystem and use ForEachTenant, which hands
// the job one tenant-scoped context at a time. An unscoped system context is
// rejected by every data operation with ErrSystemContextNotScoped.
//
//	enforcer := isolation.NewEnforcer(
//	    isolation.WithAuditLogger(auditLog),
//	    isolation.WithMetrics(isolation.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	products := isolation.NewRepository[*Product](enforcer, store, "product")
//	p, err := products.Get(ctx, rc, "P-1")
package isolation
