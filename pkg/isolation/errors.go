package isolation

import (
	"errors"

	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

var (
	// ErrMissingContext is returned when a data operation runs without a
	// request context. It is the same sentinel as reqctx.ErrMissingContext.
	ErrMissingContext = reqctx.ErrMissingContext

	// ErrSystemContextNotScoped is returned when an unscoped system context
	// reaches a data operation. System jobs iterate tenants with ForEachTenant.
	ErrSystemContextNotScoped = errors.New("isolation: system context is not scoped to a tenant")

	// ErrCrossTenantViolation is returned when an operation targets data owned
	// by another tenant. It is always audited and counted.
	ErrCrossTenantViolation = errors.New("isolation: cross-tenant access rejected")

	// ErrNotFound is returned when a record does not exist for the caller's
	// tenant. By-id reads of another tenant's record return an error matching
	// both ErrNotFound and ErrCrossTenantViolation.
	ErrNotFound = errors.New("isolation: record not found")

	// ErrConflict is returned by backends when a record id is already taken.
	ErrConflict = errors.New("isolation: record already exists")

	// ErrInvalidKey is returned for empty domain keys.
	ErrInvalidKey = errors.New("isolation: invalid key")
)
