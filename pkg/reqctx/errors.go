package reqctx

import "errors"

var (
	// ErrMissingContext is returned when work that needs a request context runs without one.
	ErrMissingContext = errors.New("reqctx: no request context")

	// ErrEmptyTenantID is returned when a context is built without a tenant.
	ErrEmptyTenantID = errors.New("reqctx: empty tenant id")

	// ErrInvalidTenantID is returned for tenant ids that cannot be safely namespaced.
	ErrInvalidTenantID = errors.New("reqctx: invalid tenant id")

	// ErrNotSystemContext is returned when a system-only operation receives a request context.
	ErrNotSystemContext = errors.New("reqctx: not a system context")

	// ErrAlreadyScoped is returned when narrowing a system context that already has a tenant.
	ErrAlreadyScoped = errors.New("reqctx: system context already scoped to a tenant")

	// ErrCancelled is returned when a step is not started because its request is gone.
	ErrCancelled = errors.New("reqctx: request cancelled")
)
