// Package tenant resolves the tenant of every inbound request and owns the
// registry of known tenants.
//
// # Architecture
//
//  1. Registry - maps routing keys and custom domains to tenants, with a
//     bounded TTL cache in front of a Store (memory, Postgres).
//  2. Strategy - extracts the candidate routing key from the request. Exactly
//     one strategy is active per deployment: subdomain or path.
//  3. Resolver - validates the candidate and consults the registry, producing
//     one of four outcomes: resolved, no tenant, not resolved, suspended.
//  4. Middleware - runs the resolver and attaches a reqctx.Context.
//
// # Usage
//
//	registry := tenant.NewRegistry(store, tenant.WithCacheTTL(5*time.Minute))
//	resolver := tenant.NewResolver(registry, tenant.SubdomainStrategy("shop.com"))
//	router.Use(tenant.Middleware(resolver, tenant.WithSkipPaths("/healthz")))
//
// # Failure modes
//
// The registry fails closed: when the store is unavailable the lookup is
// reported as not found, never as "allow". Routing keys are restricted to
// lowercase alphanumerics and hyphens (max 63) before they reach the cache.
// A request without any routing key is reported as ErrNoTenant and is never
// defaulted to some tenant.
//
// # Invalidation
//
// The provisioning flow (Admin) calls Registry.Invalidate after each change.
// Invalidate returns only after the cache dropped every alias of the tenant.
package tenant
