package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no non-deleted tenant matches a key.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantNotResolved is returned when the request names a tenant that cannot be resolved.
	ErrTenantNotResolved = errors.New("tenant not resolved")

	// ErrTenantSuspended is returned when the tenant exists but is not active.
	ErrTenantSuspended = errors.New("tenant is suspended")

	// ErrNoTenant is returned when the request carries no routing key at all.
	ErrNoTenant = errors.New("no tenant routing key in request")

	// ErrInvalidRoutingKey is returned when a candidate key fails the syntax check.
	ErrInvalidRoutingKey = errors.New("invalid tenant routing key")

	// ErrRegistryUnavailable is returned when the backing store cannot be reached.
	ErrRegistryUnavailable = errors.New("tenant registry unavailable")

	// ErrDuplicateKey is returned when a routing key or custom domain is already taken.
	ErrDuplicateKey = errors.New("tenant routing key or custom domain already in use")

	// ErrInvalidTenant is returned when a tenant record fails validation.
	ErrInvalidTenant = errors.New("invalid tenant record")

	// ErrOverrideRejected is returned when the override header is used without a system credential.
	ErrOverrideRejected = errors.New("tenant override rejected")
)
