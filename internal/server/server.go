package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/storefront/core"
	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/correlation"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
	"github.com/dmitrymomot/storefront/pkg/tenant"
)

// Deps are the collaborators of the HTTP surface. Catalog, Audit, Gatherer
// and Checks are optional.
type Deps struct {
	Resolver *tenant.Resolver
	Registry *tenant.Registry
	Admin    *tenant.Admin
	Auth     *auth.Service
	Enforcer *isolation.Enforcer
	Catalog  *catalog.Service
	Audit    *audit.Reader
	Gatherer prometheus.Gatherer
	Checks   []httpserver.Check
	Logger   *slog.Logger

	// PathRouting mounts tenant routes under "/{tenant}" for the path
	// resolution strategy instead of at the root.
	PathRouting    bool
	RequestTimeout time.Duration
	HealthTimeout  time.Duration
}

// New builds the router. Operator endpoints (/healthz, /metrics, /admin)
// are served without tenant resolution; everything else runs behind the
// correlation, tenant and auth middleware in that order.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.HealthTimeout <= 0 {
		d.HealthTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, correlation.Middleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { _ = core.JSONError(w, core.ErrNotFound) })

	r.Get("/healthz", httpserver.HealthCheckHandler(d.Logger, d.HealthTimeout, d.Checks...))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Mount("/admin", newAdminHandler(d).routes())

	storefront := chi.NewRouter()
	storefront.Use(
		tenant.Middleware(d.Resolver,
			tenant.WithLogger(d.Logger),
			tenant.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) { _ = core.JSONError(w, err) }),
		),
		reqctx.Timeout(d.RequestTimeout),
		auth.Middleware(d.Auth,
			auth.WithEnforcer(d.Enforcer),
			auth.WithLogger(d.Logger),
			auth.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) { _ = core.JSONError(w, err) }),
		),
	)
	storefront.Get("/whoami", whoami)
	if d.Catalog != nil {
		storefront.Mount("/", catalog.NewHandler(d.Catalog, d.Logger).Routes())
	}

	if d.PathRouting {
		r.Mount("/{tenant}", storefront)
		// The bare root carries no routing key; the resolver reports it.
		r.Handle("/", storefront)
	} else {
		r.Mount("/", storefront)
	}
	return r
}

// whoami echoes the request context, useful to verify routing of a host.
func whoami(w http.ResponseWriter, r *http.Request) {
	rc, err := reqctx.FromContext(r.Context())
	if err != nil {
		_ = core.JSONError(w, err)
		return
	}
	_ = core.JSON(w, http.StatusOK, map[string]any{
		"tenant_id":      rc.TenantID(),
		"principal_id":   rc.PrincipalID(),
		"roles":          rc.Roles(),
		"correlation_id": rc.CorrelationID(),
	}, nil)
}
