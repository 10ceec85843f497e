package isolation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Store is a persistence backend for one record type. Implementations live in
// the database packages; application code reaches them only via Repository.
type Store[T Record] interface {
	// Get reads by primary key without a tenant predicate. Returns ErrNotFound.
	Get(ctx context.Context, id string) (T, error)
	// Find returns records of the scope's tenant matching the filter.
	Find(ctx context.Context, scope Scope, f Filter) ([]T, error)
	Insert(ctx context.Context, scope Scope, rec T) error
	// Update and Delete must include the scope's tenant in their predicate and
	// return ErrNotFound when nothing matched.
	Update(ctx context.Context, scope Scope, rec T) error
	Delete(ctx context.Context, scope Scope, id string) error
}

// Repository is the tenant-enforcing front of a Store.
type Repository[T Record] struct {
	enforcer *Enforcer
	store    Store[T]
	resource string
}

// NewRepository wraps store. resource names the record type in audit events.
func NewRepository[T Record](e *Enforcer, store Store[T], resource string) *Repository[T] {
	return &Repository[T]{enforcer: e, store: store, resource: resource}
}

// Find lists the caller's records. A tenant condition naming another tenant is
// a violation; one naming the caller's tenant is redundant and dropped.
// Results are checked again after the read.
func (r *Repository[T]) Find(ctx context.Context, rc reqctx.Context, f Filter) ([]T, error) {
	scope, err := r.enforcer.Scope(ctx, rc, OpList)
	if err != nil {
		return nil, err
	}

	where := make([]Condition, 0, len(f.Where))
	for _, c := range f.Where {
		if c.Field != TenantField {
			where = append(where, c)
			continue
		}
		if v := fmt.Sprint(c.Value); v != scope.tenantID {
			return nil, r.enforcer.violation(ctx, rc, OpList, v, r.resource, "")
		}
	}
	f.Where = where

	recs, err := r.store.Find(ctx, scope, f)
	if err != nil {
		return nil, err
	}

	out := recs[:0]
	for _, rec := range recs {
		if rec.GetTenantID() != scope.tenantID {
			_ = r.enforcer.violation(ctx, rc, OpList, rec.GetTenantID(), r.resource, rec.GetID())
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get reads one record by id. A record owned by another tenant is reported
// as not found to the caller and as a violation to the audit log.
func (r *Repository[T]) Get(ctx context.Context, rc reqctx.Context, id string) (T, error) {
	var zero T
	scope, err := r.enforcer.Scope(ctx, rc, OpRead)
	if err != nil {
		return zero, err
	}

	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if owner := rec.GetTenantID(); owner != scope.tenantID {
		verr := r.enforcer.violation(ctx, rc, OpRead, owner, r.resource, id)
		return zero, fmt.Errorf("%w: %w", ErrNotFound, verr)
	}
	return rec, nil
}

// Create stores rec under the caller's tenant. Any tenant id already set on
// rec is overwritten; a forged value is logged and audited.
func (r *Repository[T]) Create(ctx context.Context, rc reqctx.Context, rec T) error {
	scope, err := r.enforcer.Scope(ctx, rc, OpCreate)
	if err != nil {
		return err
	}

	if forged := rec.GetTenantID(); forged != "" && forged != scope.tenantID {
		r.enforcer.logger.WarnContext(ctx, "isolation: tenant id on new record overwritten",
			logger.TenantID(scope.tenantID),
			logger.AttemptedTenantID(forged),
			logger.CorrelationID(rc.CorrelationID()),
		)
		if err := r.enforcer.audit.Log(ctx, OpCreate,
			audit.WithRequest(rc.CorrelationID(), rc.TenantID(), rc.PrincipalID()),
			audit.WithAttemptedTenant(forged),
			audit.WithResource(r.resource, rec.GetID()),
			audit.WithMetadata("tenant_id_overwritten", true),
		); err != nil {
			r.enforcer.logger.ErrorContext(ctx, "isolation: audit write failed", logger.Error(err))
		}
	}
	rec.SetTenantID(scope.tenantID)
	return r.store.Insert(ctx, scope, rec)
}

// Update replaces rec after checking that the stored record belongs to the
// caller's tenant and that rec does not try to move to another tenant.
func (r *Repository[T]) Update(ctx context.Context, rc reqctx.Context, rec T) error {
	scope, err := r.enforcer.Scope(ctx, rc, OpUpdate)
	if err != nil {
		return err
	}
	if err := r.checkOwner(ctx, rc, scope, OpUpdate, rec.GetID()); err != nil {
		return err
	}
	if t := rec.GetTenantID(); t != "" && t != scope.tenantID {
		return r.enforcer.violation(ctx, rc, OpUpdate, t, r.resource, rec.GetID())
	}
	rec.SetTenantID(scope.tenantID)
	return r.store.Update(ctx, scope, rec)
}

// Delete removes a record of the caller's tenant.
func (r *Repository[T]) Delete(ctx context.Context, rc reqctx.Context, id string) error {
	scope, err := r.enforcer.Scope(ctx, rc, OpDelete)
	if err != nil {
		return err
	}
	if err := r.checkOwner(ctx, rc, scope, OpDelete, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, scope, id)
}

func (r *Repository[T]) checkOwner(ctx context.Context, rc reqctx.Context, scope Scope, op, id string) error {
	existing, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if owner := existing.GetTenantID(); owner != scope.tenantID {
		return r.enforcer.violation(ctx, rc, op, owner, r.resource, id)
	}
	return nil
}
