package isolation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// TenantLister lists the tenants a system job iterates over.
type TenantLister interface {
	TenantIDs(ctx context.Context) ([]string, error)
}

// TenantFunc is the per-tenant step of a system job.
type TenantFunc func(ctx context.Context, rc reqctx.Context) error

// ForEachTenant runs fn once per tenant, one tenant at a time, each time with
// sys narrowed to that tenant. A failing tenant does not stop the job; the
// errors are joined. Cancellation stops the job before the next tenant.
func (e *Enforcer) ForEachTenant(ctx context.Context, sys reqctx.Context, lister TenantLister, fn TenantFunc) error {
	if sys.IsZero() {
		e.missingContext(ctx, "system_job")
		return ErrMissingContext
	}
	if !sys.IsSystem() || sys.Scoped() {
		return reqctx.ErrNotSystemContext
	}

	ids, err := lister.TenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("isolation: list tenants: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if err := reqctx.Checkpoint(ctx); err != nil {
			return errors.Join(append(errs, err)...)
		}
		rc, err := sys.ForTenant(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
			continue
		}
		if err := fn(ctx, rc); err != nil {
			e.logger.ErrorContext(ctx, "isolation: system job failed for tenant",
				logger.TenantID(id),
				logger.CorrelationID(sys.CorrelationID()),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
