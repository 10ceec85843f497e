package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

type env struct {
	enforcer *isolation.Enforcer
	audit    *audit.MemoryStorage
	metrics  *isolation.Metrics
	store    *isolation.MemoryStore[*catalog.Product]
	index    *isolation.MemoryIndex
	svc      *catalog.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	storage := audit.NewMemoryStorage()
	metrics := isolation.NewMetrics(prometheus.NewRegistry())
	enforcer := isolation.NewEnforcer(
		isolation.WithAuditLogger(audit.NewLogger(storage)),
		isolation.WithMetrics(metrics),
	)
	e := &env{
		enforcer: enforcer,
		audit:    storage,
		metrics:  metrics,
		store:    isolation.NewMemoryStore[*catalog.Product](),
		index:    isolation.NewMemoryIndex(),
	}
	e.svc = e.service()
	return e
}

// service builds a catalog over the env's shared store and index.
func (e *env) service() *catalog.Service {
	return catalog.NewService(e.enforcer, e.store,
		catalog.WithCache(isolation.NewScopedCache(e.enforcer, isolation.NewMemoryCache(100), time.Minute)),
		catalog.WithIndex(isolation.NewScopedIndex(e.enforcer, e.index, "product")),
		catalog.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func (e *env) deniedEvents() []audit.Event {
	var out []audit.Event
	for _, ev := range e.audit.Events() {
		if ev.Result == audit.ResultDenied {
			out = append(out, ev)
		}
	}
	return out
}

func requestContext(t *testing.T, tenantID string) reqctx.Context {
	t.Helper()
	rc, err := reqctx.New(tenantID, "corr-"+tenantID)
	require.NoError(t, err)
	return rc
}

func mustCreate(t *testing.T, svc *catalog.Service, rc reqctx.Context, sku, name, category string, price int64) *catalog.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), rc, catalog.CreateInput{SKU: sku, Name: name, Category: category, Price: price})
	require.NoError(t, err)
	return p
}

type staticTenants []string

func (s staticTenants) TenantIDs(context.Context) ([]string, error) { return s, nil }
