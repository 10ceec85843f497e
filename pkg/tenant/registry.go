package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultCacheTTL bounds how long a suspension or deletion may take to
// propagate when the provisioning flow does not call Invalidate.
const DefaultCacheTTL = 5 * time.Minute

// Registry is the single source of truth mapping routing keys to tenants,
// with a read-through cache in front of the Store.
type Registry struct {
	store  Store
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// RegistryOption configures the registry.
type RegistryOption func(*Registry)

// WithCache sets a custom cache implementation.
func WithCache(cache Cache) RegistryOption {
	return func(r *Registry) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithCacheTTL sets how long resolved tenants stay cached.
func WithCacheTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRegistryLogger sets a custom logger for the registry.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry over store. Without options it uses a bounded
// in-memory cache with DefaultCacheTTL.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  store,
		cache:  NewMemoryCache(DefaultCacheSize),
		ttl:    DefaultCacheTTL,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tenant whose routing key or custom domain matches key,
// compared case-insensitively. Deleted tenants are reported as not found.
// Store failures fail closed: the error matches ErrTenantNotFound and
// ErrRegistryUnavailable.
func (r *Registry) Resolve(ctx context.Context, routingKey string) (*Tenant, error) {
	key := NormalizeKey(routingKey)
	if key == "" {
		return nil, ErrTenantNotFound
	}

	if t, ok := r.cache.Get(ctx, key); ok {
		if t.IsDeleted() {
			return nil, ErrTenantNotFound
		}
		return t, nil
	}

	// The generation is read before the store so that a fill racing with an
	// Invalidate, in this or any other process, is dropped by the cache.
	gen, genErr := r.cache.Generation(ctx)
	t, err := r.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		r.logger.ErrorContext(ctx, "tenant registry: backing store lookup failed",
			slog.String("routing_key", key),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %w: %w", ErrTenantNotFound, ErrRegistryUnavailable, err)
	}
	if t.IsDeleted() {
		return nil, ErrTenantNotFound
	}

	if genErr != nil {
		r.logger.WarnContext(ctx, "tenant registry: cache generation unavailable, skipping fill",
			slog.String("tenant_id", t.ID),
			slog.Any("error", genErr),
		)
		return t.Clone(), nil
	}
	r.fill(ctx, gen, key, t)
	return t.Clone(), nil
}

func (r *Registry) fill(ctx context.Context, gen uint64, key string, t *Tenant) {
	stored, err := r.cache.Set(ctx, key, t, r.ttl, gen)
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "tenant registry: cache fill failed",
			slog.String("tenant_id", t.ID),
			slog.Any("error", err),
		)
	case !stored:
		r.logger.DebugContext(ctx, "tenant registry: fill dropped after invalidation",
			slog.String("tenant_id", t.ID),
		)
	}
}

// Invalidate drops every cached entry of tenantID. It returns only after the
// cache acknowledged the removal, so the next Resolve reads the store.
func (r *Registry) Invalidate(ctx context.Context, tenantID string) error {
	if err := r.cache.Invalidate(ctx, tenantID); err != nil {
		r.logger.ErrorContext(ctx, "tenant registry: cache invalidation failed",
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
		return fmt.Errorf("invalidate tenant %s: %w", tenantID, err)
	}
	r.logger.InfoContext(ctx, "tenant registry: cache invalidated", slog.String("tenant_id", tenantID))
	return nil
}

// Get looks a tenant up by id, bypassing the routing key cache.
func (r *Registry) Get(ctx context.Context, tenantID string) (*Tenant, error) {
	t, err := r.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("%w: %w: %w", ErrTenantNotFound, ErrRegistryUnavailable, err)
	}
	if t.IsDeleted() {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// List returns every non-deleted tenant.
func (r *Registry) List(ctx context.Context) ([]*Tenant, error) {
	tenants, err := r.store.List(ctx)
	if err != nil {
		return nil, errors.Join(ErrRegistryUnavailable, err)
	}
	return tenants, nil
}

// TenantIDs returns the ids of all non-deleted tenants, for system jobs that
// iterate tenants one at a time.
func (r *Registry) TenantIDs(ctx context.Context) ([]string, error) {
	tenants, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return ids, nil
}
