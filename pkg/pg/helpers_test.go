package pg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

type doc struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	SKU      string `json:"sku"`
	Price    int    `json:"price"`
}

func (d *doc) GetID() string         { return d.ID }
func (d *doc) GetTenantID() string   { return d.TenantID }
func (d *doc) SetTenantID(id string) { d.TenantID = id }

func mustContext(t *testing.T, tenantID string) reqctx.Context {
	t.Helper()
	rc, err := reqctx.New(tenantID, "")
	require.NoError(t, err)
	return rc
}

// scopeCapture records the scope the enforcer hands to the store.
type scopeCapture struct {
	isolation.MemoryStore[*doc]
	scope *isolation.Scope
}

func (s *scopeCapture) Find(_ context.Context, scope isolation.Scope, _ isolation.Filter) ([]*doc, error) {
	*s.scope = scope
	return nil, nil
}
