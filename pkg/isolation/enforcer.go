package isolation

import (
	"context"
	"io"
	"log/slog"

	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Operations reported in logs, audit events and the violation metric.
const (
	OpRead        = "read"
	OpList        = "list"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpCacheGet    = "cache_get"
	OpCacheSet    = "cache_set"
	OpCacheDelete = "cache_delete"
	OpSearch      = "search"
	OpIndex       = "index"
	OpUnindex     = "unindex"
	OpKey         = "key"
)

// Enforcer guards every data access path. It holds no per-request state.
type Enforcer struct {
	audit   *audit.Logger
	metrics *Metrics
	logger  *slog.Logger
}

// EnforcerOption configures the enforcer.
type EnforcerOption func(*Enforcer)

// WithAuditLogger sets the sink for violation records.
func WithAuditLogger(l *audit.Logger) EnforcerOption {
	return func(e *Enforcer) {
		if l != nil {
			e.audit = l
		}
	}
}

// WithMetrics sets the violation and missing-context counters. Defaults to
// metrics that are not registered anywhere.
func WithMetrics(m *Metrics) EnforcerOption {
	return func(e *Enforcer) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithLogger sets the logger for rejected and unscoped accesses.
func WithLogger(l *slog.Logger) EnforcerOption {
	return func(e *Enforcer) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEnforcer creates an enforcer. Without options violations are audited to
// a slog writer over the discard logger and counted in unregistered metrics.
func NewEnforcer(opts ...EnforcerOption) *Enforcer {
	e := &Enforcer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.audit == nil {
		e.audit = audit.NewLogger(audit.NewSlogWriter(e.logger))
	}
	return e
}

// Scope validates rc and returns the tenant scope for a data operation.
func (e *Enforcer) Scope(ctx context.Context, rc reqctx.Context, op string) (Scope, error) {
	if rc.IsZero() {
		e.missingContext(ctx, op)
		return Scope{}, ErrMissingContext
	}
	if !rc.Scoped() {
		e.logger.ErrorContext(ctx, "isolation: unscoped system context used for data access",
			logger.Operation(op),
			logger.CorrelationID(rc.CorrelationID()),
		)
		return Scope{}, ErrSystemContextNotScoped
	}
	return Scope{tenantID: rc.TenantID()}, nil
}

func (e *Enforcer) missingContext(ctx context.Context, op string) {
	e.metrics.missingContext.Inc()
	e.logger.ErrorContext(ctx, "isolation: data access without request context", logger.Operation(op))
	if err := e.audit.LogError(ctx, op, ErrMissingContext); err != nil {
		e.logger.ErrorContext(ctx, "isolation: audit write failed", logger.Error(err))
	}
}

// violation records a rejected cross-tenant operation and returns
// ErrCrossTenantViolation. The full detail stays server-side.
func (e *Enforcer) violation(ctx context.Context, rc reqctx.Context, op, attemptedTenantID, resource, resourceID string) error {
	e.metrics.violations.WithLabelValues(op).Inc()
	e.logger.ErrorContext(ctx, "isolation: cross-tenant access rejected",
		logger.Operation(op),
		logger.TenantID(rc.TenantID()),
		logger.AttemptedTenantID(attemptedTenantID),
		logger.PrincipalID(rc.PrincipalID()),
		logger.CorrelationID(rc.CorrelationID()),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
	)
	if err := e.audit.LogDenied(ctx, op, ErrCrossTenantViolation,
		audit.WithRequest(rc.CorrelationID(), rc.TenantID(), rc.PrincipalID()),
		audit.WithAttemptedTenant(attemptedTenantID),
		audit.WithResource(resource, resourceID),
	); err != nil {
		e.logger.ErrorContext(ctx, "isolation: audit write failed", logger.Error(err))
	}
	return ErrCrossTenantViolation
}

// ReportViolation lets other layers (authentication, custom backends) report
// a rejected cross-tenant attempt through the same audit and metric path.
func (e *Enforcer) ReportViolation(ctx context.Context, rc reqctx.Context, op, attemptedTenantID string) error {
	return e.violation(ctx, rc, op, attemptedTenantID, "", "")
}
