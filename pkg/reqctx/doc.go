// Package reqctx carries the verified tenant, principal and correlation id of
// one request through every step of its processing graph.
//
// A Context is an immutable value. It is built once by the tenant middleware
// after resolution, and derived (never mutated) when authentication adds a
// principal. Data access APIs take it as an explicit parameter, so a call site
// that forgets it does not compile.
//
// # Propagation
//
// Work that leaves the current goroutine binds the context at submission time:
//
//	err := reqctx.Fanout(ctx, rc,
//		func(ctx context.Context, rc reqctx.Context) error { return loadPrices(ctx, rc) },
//		func(ctx context.Context, rc reqctx.Context) error { return loadStock(ctx, rc) },
//	)
//
//	products, err := reqctx.Map(ctx, rc, 8, ids, catalog.Get)
//
// Each sub-operation observes the same rc. Cancellation of the parent
// context.Context stops new steps from starting; Checkpoint is the hook every
// step calls first.
//
// # System contexts
//
// NewSystem creates the only context kind that is not bound to a tenant. It
// cannot reach data until narrowed with ForTenant, which the isolation
// package does one tenant at a time.
package reqctx
