package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

type item struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	SKU      string `json:"sku"`
	Price    int    `json:"price"`
}

func (i *item) GetID() string         { return i.ID }
func (i *item) GetTenantID() string   { return i.TenantID }
func (i *item) SetTenantID(id string) { i.TenantID = id }

// capture records the scope the enforcer hands to the store.
type capture struct {
	isolation.MemoryStore[*item]
	scope isolation.Scope
}

func (c *capture) Insert(_ context.Context, scope isolation.Scope, _ *item) error {
	c.scope = scope
	return nil
}

func scopeFor(t *testing.T, tenantID string) isolation.Scope {
	t.Helper()
	rc, err := reqctx.New(tenantID, "")
	require.NoError(t, err)
	store := &capture{}
	repo := isolation.NewRepository[*item](isolation.NewEnforcer(), store, "item")
	require.NoError(t, repo.Create(context.Background(), rc, &item{ID: "x"}))
	return store.scope
}

func TestBuildFilter(t *testing.T) {
	t.Parallel()
	scope := scopeFor(t, "T-1")

	filter, err := buildFilter(scope, []isolation.Condition{
		isolation.Eq("sku", "SKU-1"),
		isolation.Eq("id", "P-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "tenant_id", Value: "T-1"},
		{Key: "data.sku", Value: "SKU-1"},
		{Key: "_id", Value: "P-1"},
	}, filter)

	_, err = buildFilter(scope, []isolation.Condition{isolation.Eq("$where", "1")})
	require.ErrorIs(t, err, ErrInvalidField)
	_, err = buildFilter(scope, []isolation.Condition{isolation.Eq("data.nested", "1")})
	require.ErrorIs(t, err, ErrInvalidField)

	_, err = buildFilter(isolation.Scope{}, nil)
	require.ErrorIs(t, err, ErrUnscopedQuery)
}

func TestBuildFindOptions(t *testing.T) {
	t.Parallel()

	_, err := buildFindOptions(isolation.Filter{SortBy: "price", Desc: true, Limit: 5, Offset: 10})
	require.NoError(t, err)

	_, err = buildFindOptions(isolation.Filter{SortBy: "$natural"})
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestCriteriaFilter(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := criteriaFilter(audit.Criteria{
		AttemptedTenantID: "T-1",
		Result:            audit.ResultDenied,
		Since:             since,
	})
	assert.Equal(t, bson.D{
		{Key: "attempted_tenant_id", Value: "T-1"},
		{Key: "result", Value: "denied"},
		{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since}}},
	}, filter)

	assert.Empty(t, criteriaFilter(audit.Criteria{}))
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()
	scope := scopeFor(t, "T-2")

	doc, err := encodeRecord(scope, &item{ID: "P-1", TenantID: "forged", SKU: "SKU-1", Price: 42})
	require.NoError(t, err)
	assert.Equal(t, "P-1", doc.ID)
	assert.Equal(t, "T-2", doc.TenantID)

	got, err := decodeRecord[*item](doc)
	require.NoError(t, err)
	assert.Equal(t, "T-2", got.TenantID, "column wins over the embedded copy")
	assert.Equal(t, "SKU-1", got.SKU)
	assert.Equal(t, 42, got.Price)
}
