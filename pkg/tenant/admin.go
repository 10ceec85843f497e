package tenant

import (
	"context"
	"fmt"
	"log/slog"
)

// Admin is the provisioning flow: the only sanctioned writer of tenant records.
// Every mutation is followed by a registry invalidation.
type Admin struct {
	store    Store
	registry *Registry
	logger   *slog.Logger
}

// NewAdmin creates the provisioning service.
func NewAdmin(store Store, registry *Registry, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = registry.logger
	}
	return &Admin{store: store, registry: registry, logger: logger}
}

// Upsert creates or replaces a tenant record.
func (a *Admin) Upsert(ctx context.Context, t *Tenant) error {
	if t.Status == "" {
		t.Status = StatusActive
	}
	if err := a.store.Save(ctx, t); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "tenant upserted",
		slog.String("tenant_id", t.ID),
		slog.String("routing_key", t.RoutingKey),
		slog.String("status", string(t.Status)),
	)
	return a.registry.Invalidate(ctx, t.ID)
}

// SetStatus changes the lifecycle state of a tenant.
func (a *Admin) SetStatus(ctx context.Context, tenantID string, status Status) (*Tenant, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidTenant, status)
	}
	t, err := a.store.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	t.Status = status
	if err := a.store.Save(ctx, t); err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "tenant status changed",
		slog.String("tenant_id", tenantID),
		slog.String("status", string(status)),
	)
	if err := a.registry.Invalidate(ctx, tenantID); err != nil {
		return nil, err
	}
	return t, nil
}

func (a *Admin) Suspend(ctx context.Context, tenantID string) (*Tenant, error) {
	return a.SetStatus(ctx, tenantID, StatusSuspended)
}

func (a *Admin) Activate(ctx context.Context, tenantID string) (*Tenant, error) {
	return a.SetStatus(ctx, tenantID, StatusActive)
}

// Delete marks the tenant deleted; its keys become free for reuse.
func (a *Admin) Delete(ctx context.Context, tenantID string) error {
	_, err := a.SetStatus(ctx, tenantID, StatusDeleted)
	return err
}
