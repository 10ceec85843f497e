package tenant

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/storefront/pkg/correlation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Middleware resolves the tenant of every request and attaches the immutable
// request context. Requests that do not resolve to an active tenant never
// reach next.
func Middleware(resolver *Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := r.Context()
			res, err := resolver.Resolve(r)
			if err != nil {
				logResolution(cfg.logger, r, res, err)
				cfg.errorHandler(w, r, err)
				return
			}

			rc, err := reqctx.New(res.TenantID, correlation.FromContext(ctx))
			if err != nil {
				cfg.logger.ErrorContext(ctx, "tenant: cannot build request context",
					slog.String("tenant_id", res.TenantID),
					slog.Any("error", err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(reqctx.Attach(ctx, rc)))
		})
	}
}

// logResolution keeps misconfiguration (no tenant) apart from probing
// (malformed or unknown keys) in the logs.
func logResolution(logger *slog.Logger, r *http.Request, res Resolution, err error) {
	ctx := r.Context()
	attrs := []any{
		slog.String("outcome", res.Outcome.String()),
		slog.String("host", r.Host),
		slog.String("path", r.URL.Path),
	}
	switch {
	case errors.Is(err, ErrNoTenant):
		logger.InfoContext(ctx, "tenant: request carries no routing key", attrs...)
	case errors.Is(err, ErrInvalidRoutingKey):
		logger.WarnContext(ctx, "tenant: malformed routing key rejected", append(attrs, slog.Any("error", err))...)
	case errors.Is(err, ErrRegistryUnavailable):
		logger.ErrorContext(ctx, "tenant: registry unavailable, failing closed", append(attrs, slog.Any("error", err))...)
	case errors.Is(err, ErrTenantSuspended):
		logger.InfoContext(ctx, "tenant: suspended tenant requested",
			append(attrs, slog.String("tenant_id", res.TenantID))...)
	default:
		logger.WarnContext(ctx, "tenant: unknown routing key",
			append(attrs, slog.String("routing_key", res.RoutingKey))...)
	}
}
