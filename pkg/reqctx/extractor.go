package reqctx

import (
	"context"
	"log/slog"
)

// TenantLoggerExtractor enriches log records with the tenant id of the active request.
func TenantLoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if rc, err := FromContext(ctx); err == nil && rc.TenantID() != "" {
			return slog.String("tenant_id", rc.TenantID()), true
		}
		return slog.Attr{}, false
	}
}

// PrincipalLoggerExtractor enriches log records with the authenticated principal.
func PrincipalLoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if rc, err := FromContext(ctx); err == nil && !rc.IsGuest() {
			return slog.String("principal_id", rc.PrincipalID()), true
		}
		return slog.Attr{}, false
	}
}

// LogAttrs renders rc for explicit logging where no context.Context is at hand.
func LogAttrs(rc Context) []any {
	return []any{
		slog.String("context_kind", rc.Kind().String()),
		slog.String("tenant_id", rc.TenantID()),
		slog.String("principal_id", rc.PrincipalID()),
		slog.String("correlation_id", rc.CorrelationID()),
	}
}
