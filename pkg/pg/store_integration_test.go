package pg_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/pg"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
	"github.com/dmitrymomot/storefront/pkg/tenant"
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

// connect returns a migrated pool, or skips when no database is configured.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("PG_TEST_CONN_URL")
	if url == "" {
		t.Skip("PG_TEST_CONN_URL not set")
	}
	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		MigrationsTable:  "storefront_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pg.Migrate(ctx, pool, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, pg.Healthcheck(pool)(ctx))
	return pool
}

func uniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestTenantStore(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()
	store := pg.NewTenantStore(pool)

	id, key := uniqueID("T"), uniqueID("acme")
	require.NoError(t, store.Save(ctx, &tenant.Tenant{ID: id, RoutingKey: key, Name: "Acme", Status: tenant.StatusActive}))

	got, err := store.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, tenant.StatusActive, got.Status)

	err = store.Save(ctx, &tenant.Tenant{ID: uniqueID("T"), RoutingKey: key, Status: tenant.StatusActive})
	require.ErrorIs(t, err, tenant.ErrDuplicateKey)

	got.Status = tenant.StatusSuspended
	require.NoError(t, store.Save(ctx, got))
	got, err = store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusSuspended, got.Status)

	_, err = store.FindByKey(ctx, uniqueID("nobody"))
	require.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestDocumentStoreIsolation(t *testing.T) {
	pool := connect(t)
	ctx := context.Background()

	collection := uniqueID("items")
	repo := isolation.NewRepository[*item](isolation.NewEnforcer(), pg.NewDocumentStore[*item](pool, collection), "item")

	t1, err := reqctx.New("T-1", "")
	require.NoError(t, err)
	t2, err := reqctx.New("T-2", "")
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, t1, &item{ID: "P-100", SKU: "SKU-1", Price: 10}))
	require.NoError(t, repo.Create(ctx, t1, &item{ID: "P-101", SKU: "SKU-2", Price: 30}))
	require.NoError(t, repo.Create(ctx, t2, &item{ID: "P-200", SKU: "SKU-1", Price: 20}))

	_, err = repo.Get(ctx, t2, "P-100")
	require.ErrorIs(t, err, isolation.ErrNotFound)

	list, err := repo.Find(ctx, t2, isolation.Filter{Where: []isolation.Condition{isolation.Eq("sku", "SKU-1")}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P-200", list[0].ID)

	list, err = repo.Find(ctx, t1, isolation.Filter{SortBy: "price", Desc: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "P-101", list[0].ID)

	require.ErrorIs(t, repo.Delete(ctx, t2, "P-100"), isolation.ErrCrossTenantViolation)
	require.NoError(t, repo.Delete(ctx, t1, "P-100"))
}
