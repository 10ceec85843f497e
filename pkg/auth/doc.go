// Package auth authenticates principals with HS256 bearer tokens.
//
// A principal token carries the tenant it was issued for. The middleware runs
// after tenant resolution and derives a new request context with the
// principal's id and roles; a token issued for another tenant is rejected and
// reported as a cross-tenant violation. Requests without a token continue as
// guests unless the middleware is configured to require one.
//
// System credentials are tokens with the system role and no tenant. They guard
// operator endpoints and the tenant override header:
//
//	svc, err := auth.New(cfg)
//	resolver := tenant.NewResolver(registry, strategy,
//		tenant.WithOverride(cfg.OverrideHeader, auth.VerifySystemRequest(svc)))
//
//	r.With(auth.RequireSystem(svc)).Post("/admin/tenants/{id}/suspend", h.Suspend)
package auth
