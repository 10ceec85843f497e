package isolation_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

type product struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
}

func (p *product) GetID() string         { return p.ID }
func (p *product) GetTenantID() string   { return p.TenantID }
func (p *product) SetTenantID(id string) { p.TenantID = id }

type env struct {
	enforcer *isolation.Enforcer
	audit    *audit.MemoryStorage
	metrics  *isolation.Metrics
	store    *isolation.MemoryStore[*product]
	repo     *isolation.Repository[*product]
}

func newEnv(t *testing.T) *env {
	t.Helper()
	storage := audit.NewMemoryStorage()
	metrics := isolation.NewMetrics(prometheus.NewRegistry())
	enforcer := isolation.NewEnforcer(
		isolation.WithAuditLogger(audit.NewLogger(storage)),
		isolation.WithMetrics(metrics),
	)
	store := isolation.NewMemoryStore[*product]()
	return &env{
		enforcer: enforcer,
		audit:    storage,
		metrics:  metrics,
		store:    store,
		repo:     isolation.NewRepository[*product](enforcer, store, "product"),
	}
}

func requestContext(t *testing.T, tenantID string) reqctx.Context {
	t.Helper()
	rc, err := reqctx.New(tenantID, "corr-"+tenantID)
	require.NoError(t, err)
	return rc
}

// deniedEvents returns the audit records of rejected cross-tenant operations.
func (e *env) deniedEvents() []audit.Event {
	var out []audit.Event
	for _, ev := range e.audit.Events() {
		if ev.Result == audit.ResultDenied {
			out = append(out, ev)
		}
	}
	return out
}
