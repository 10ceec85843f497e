// Command storefront serves the multi-tenant catalog API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/storefront/internal/server"
	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/config"
	"github.com/dmitrymomot/storefront/pkg/correlation"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
	"github.com/dmitrymomot/storefront/pkg/tenant"
)

// appConfig selects the backends of a deployment.
type appConfig struct {
	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"memory"`  // memory, pg or mongo
	CacheBackend    string        `env:"CACHE_BACKEND" envDefault:"memory"`  // memory or redis
	SearchBackend   string        `env:"SEARCH_BACKEND" envDefault:"memory"` // memory, opensearch or none
	AuditBackend    string        `env:"AUDIT_BACKEND" envDefault:"log"`     // log or mongo
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	HealthTimeout   time.Duration `env:"HEALTH_TIMEOUT" envDefault:"2s"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.FromConfig(logCfg, logger.WithContextExtractors(
		correlation.LoggerExtractor(),
		reqctx.TenantLoggerExtractor(),
		reqctx.PrincipalLoggerExtractor(),
	))
	logger.SetAsDefault(log)

	if err := run(context.Background(), log); err != nil {
		log.Error("storefront: exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		appCfg    appConfig
		tenantCfg tenant.Config
		authCfg   auth.Config
		httpCfg   httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&appCfg) },
		func() error { return config.Load(&tenantCfg) },
		func() error { return config.Load(&authCfg) },
		func() error { return config.Load(&httpCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	strategy, err := tenant.StrategyByName(tenantCfg.Strategy, tenantCfg.BaseDomain)
	if err != nil {
		return err
	}
	authSvc, err := auth.New(authCfg)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b := &backends{log: log}
	defer b.close()

	if err := b.connect(ctx, appCfg); err != nil {
		return err
	}
	auditLogger, auditReader, err := b.audit(ctx, appCfg)
	if err != nil {
		return err
	}
	enforcer := isolation.NewEnforcer(
		isolation.WithAuditLogger(auditLogger),
		isolation.WithMetrics(isolation.NewMetrics(reg)),
		isolation.WithLogger(log),
	)

	store, err := b.tenantStore(appCfg, tenantCfg)
	if err != nil {
		return err
	}
	registry := tenant.NewRegistry(store,
		tenant.WithCache(b.tenantCache(appCfg, tenantCfg)),
		tenant.WithCacheTTL(tenantCfg.CacheTTL),
		tenant.WithRegistryLogger(log),
	)

	var resolverOpts []tenant.ResolverOption
	if tenantCfg.OverrideHeader != "" {
		resolverOpts = append(resolverOpts, tenant.WithOverride(tenantCfg.OverrideHeader, auth.VerifySystemRequest(authSvc)))
	}
	resolverOpts = append(resolverOpts, tenant.WithResolverLogger(log))

	catalogSvc, err := b.catalog(ctx, appCfg, enforcer)
	if err != nil {
		return err
	}

	// The in-memory index starts empty while durable stores do not.
	if appCfg.SearchBackend == "memory" && appCfg.StoreBackend != "memory" {
		n, err := catalogSvc.Reindex(ctx, reqctx.NewSystem(""), registry)
		if err != nil {
			return fmt.Errorf("rebuild search index: %w", err)
		}
		log.Info("storefront: search index rebuilt", slog.Int("products", n))
	}

	handler := server.New(server.Deps{
		Resolver:       tenant.NewResolver(registry, strategy, resolverOpts...),
		Registry:       registry,
		Admin:          tenant.NewAdmin(store, registry, log),
		Auth:           authSvc,
		Enforcer:       enforcer,
		Catalog:        catalogSvc,
		Audit:          auditReader,
		Gatherer:       reg,
		Checks:         b.checks,
		Logger:         log,
		PathRouting:    strings.EqualFold(tenantCfg.Strategy, "path"),
		RequestTimeout: appCfg.RequestTimeout,
		HealthTimeout:  appCfg.HealthTimeout,
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(addr string) {
			log.Info("storefront: listening",
				slog.String("addr", addr),
				slog.String("strategy", tenantCfg.Strategy),
				slog.String("store", appCfg.StoreBackend),
			)
		}),
		httpserver.WithStopHook(b.close),
	)
	return srv.Run(ctx, handler)
}
