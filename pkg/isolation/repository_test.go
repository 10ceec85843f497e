package isolation_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

func TestCrossTenantReadByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	t1 := requestContext(t, "T-1")
	t2 := requestContext(t, "T-2")

	require.NoError(t, e.repo.Create(ctx, t1, &product{ID: "P-100", Name: "Anvil", Price: 100}))

	got, err := e.repo.Get(ctx, t1, "P-100")
	require.NoError(t, err)
	assert.Equal(t, "T-1", got.TenantID)

	got, err = e.repo.Get(ctx, t2, "P-100")
	require.ErrorIs(t, err, isolation.ErrNotFound)
	require.ErrorIs(t, err, isolation.ErrCrossTenantViolation)
	assert.Nil(t, got)

	denied := e.deniedEvents()
	require.Len(t, denied, 1)
	ev := denied[0]
	assert.Equal(t, "corr-T-2", ev.CorrelationID)
	assert.Equal(t, "T-2", ev.TenantID)
	assert.Equal(t, "T-1", ev.AttemptedTenantID)
	assert.Equal(t, isolation.OpRead, ev.Operation)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Violations().WithLabelValues(isolation.OpRead)))
}

func TestCrossTenantReadByList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	t1 := requestContext(t, "T-1")
	t2 := requestContext(t, "T-2")

	require.NoError(t, e.repo.Create(ctx, t1, &product{ID: "P-1", SKU: "SKU-1", Price: 10}))
	require.NoError(t, e.repo.Create(ctx, t1, &product{ID: "P-2", SKU: "SKU-2", Price: 30}))
	require.NoError(t, e.repo.Create(ctx, t2, &product{ID: "P-3", SKU: "SKU-1", Price: 20}))

	t.Run("tenant predicate injected", func(t *testing.T) {
		t.Parallel()

		got, err := e.repo.Find(ctx, t2, isolation.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "P-3", got[0].ID)

		got, err = e.repo.Find(ctx, t1, isolation.Filter{Where: []isolation.Condition{isolation.Eq("sku", "SKU-1")}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "P-1", got[0].ID)
	})

	t.Run("sort and page", func(t *testing.T) {
		t.Parallel()

		got, err := e.repo.Find(ctx, t1, isolation.Filter{SortBy: "price", Desc: true, Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "P-2", got[0].ID)
	})

	t.Run("own tenant condition is redundant", func(t *testing.T) {
		t.Parallel()

		got, err := e.repo.Find(ctx, t1, isolation.Filter{Where: []isolation.Condition{isolation.Eq(isolation.TenantField, "T-1")}})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestFindRejectsForeignTenantCondition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	got, err := e.repo.Find(ctx, requestContext(t, "T-2"), isolation.Filter{
		Where: []isolation.Condition{isolation.Eq(isolation.TenantField, "T-1")},
	})
	require.ErrorIs(t, err, isolation.ErrCrossTenantViolation)
	assert.Nil(t, got)
	require.Len(t, e.deniedEvents(), 1)
	assert.Equal(t, "T-1", e.deniedEvents()[0].AttemptedTenantID)
}

// leakyStore ignores the scope on Find, like a backend with a broken query.
type leakyStore struct {
	*isolation.MemoryStore[*product]
	all []*product
}

func (s *leakyStore) Find(context.Context, isolation.Scope, isolation.Filter) ([]*product, error) {
	out := make([]*product, len(s.all))
	for i, p := range s.all {
		c := *p
		out[i] = &c
	}
	return out, nil
}

func TestFindDiscardsLeakedRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	store := &leakyStore{
		MemoryStore: isolation.NewMemoryStore[*product](),
		all: []*product{
			{ID: "P-1", TenantID: "T-1"},
			{ID: "P-2", TenantID: "T-2"},
		},
	}
	repo := isolation.NewRepository[*product](e.enforcer, store, "product")

	got, err := repo.Find(ctx, requestContext(t, "T-2"), isolation.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "P-2", got[0].ID)
	assert.Len(t, e.deniedEvents(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Violations().WithLabelValues(isolation.OpList)))
}

func TestCreateOverwritesForgedTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	t2 := requestContext(t, "T-2")
	forged := &product{ID: "P-1", TenantID: "T-1", Name: "forged"}
	require.NoError(t, e.repo.Create(ctx, t2, forged))
	assert.Equal(t, "T-2", forged.TenantID)

	stored, err := e.repo.Get(ctx, t2, "P-1")
	require.NoError(t, err)
	assert.Equal(t, "T-2", stored.TenantID)

	_, err = e.repo.Get(ctx, requestContext(t, "T-1"), "P-1")
	require.ErrorIs(t, err, isolation.ErrNotFound)

	events, err := e.audit.Query(ctx, audit.Criteria{Operation: isolation.OpCreate})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "T-1", events[0].AttemptedTenantID)
}

func TestCreateDuplicateID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	require.NoError(t, e.repo.Create(ctx, requestContext(t, "T-1"), &product{ID: "P-1"}))
	require.ErrorIs(t, e.repo.Create(ctx, requestContext(t, "T-2"), &product{ID: "P-1"}), isolation.ErrConflict)
}

func TestGuardedUpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner may update and delete", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		t1 := requestContext(t, "T-1")

		require.NoError(t, e.repo.Create(ctx, t1, &product{ID: "P-1", Name: "old"}))
		require.NoError(t, e.repo.Update(ctx, t1, &product{ID: "P-1", Name: "new"}))

		got, err := e.repo.Get(ctx, t1, "P-1")
		require.NoError(t, err)
		assert.Equal(t, "new", got.Name)
		assert.Equal(t, "T-1", got.TenantID)

		require.NoError(t, e.repo.Delete(ctx, t1, "P-1"))
		_, err = e.repo.Get(ctx, t1, "P-1")
		require.ErrorIs(t, err, isolation.ErrNotFound)
		assert.Empty(t, e.deniedEvents())
	})

	t.Run("foreign update is a violation", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		require.NoError(t, e.repo.Create(ctx, requestContext(t, "T-1"), &product{ID: "P-1", Name: "mine"}))
		err := e.repo.Update(ctx, requestContext(t, "T-2"), &product{ID: "P-1", Name: "stolen"})
		require.ErrorIs(t, err, isolation.ErrCrossTenantViolation)
		assert.NotErrorIs(t, err, isolation.ErrNotFound)

		got, err := e.repo.Get(ctx, requestContext(t, "T-1"), "P-1")
		require.NoError(t, err)
		assert.Equal(t, "mine", got.Name)

		denied := e.deniedEvents()
		require.Len(t, denied, 1)
		assert.Equal(t, isolation.OpUpdate, denied[0].Operation)
		assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Violations().WithLabelValues(isolation.OpUpdate)))
	})

	t.Run("moving a record to another tenant is a violation", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		t1 := requestContext(t, "T-1")

		require.NoError(t, e.repo.Create(ctx, t1, &product{ID: "P-1"}))
		err := e.repo.Update(ctx, t1, &product{ID: "P-1", TenantID: "T-2"})
		require.ErrorIs(t, err, isolation.ErrCrossTenantViolation)
	})

	t.Run("foreign delete is a violation", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		require.NoError(t, e.repo.Create(ctx, requestContext(t, "T-1"), &product{ID: "P-1"}))
		err := e.repo.Delete(ctx, requestContext(t, "T-2"), "P-1")
		require.ErrorIs(t, err, isolation.ErrCrossTenantViolation)

		_, err = e.repo.Get(ctx, requestContext(t, "T-1"), "P-1")
		require.NoError(t, err, "record survives")
	})

	t.Run("missing record is not found", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		err := e.repo.Update(ctx, requestContext(t, "T-1"), &product{ID: "nope"})
		require.ErrorIs(t, err, isolation.ErrNotFound)
		assert.NotErrorIs(t, err, isolation.ErrCrossTenantViolation)
	})
}

func TestMissingContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	var zero reqctx.Context
	_, err := e.repo.Get(ctx, zero, "P-1")
	require.ErrorIs(t, err, isolation.ErrMissingContext)
	_, err = e.repo.Find(ctx, zero, isolation.Filter{})
	require.ErrorIs(t, err, isolation.ErrMissingContext)
	require.ErrorIs(t, e.repo.Create(ctx, zero, &product{ID: "P-1"}), isolation.ErrMissingContext)

	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.MissingContext()))
	events, err := e.audit.Query(ctx, audit.Criteria{Result: audit.ResultError})
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = e.store.Get(ctx, "P-1")
	require.ErrorIs(t, err, isolation.ErrNotFound, "nothing was written")
}

func TestUnscopedSystemContextRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sys := reqctx.NewSystem("job-1")
	_, err := e.repo.Find(ctx, sys, isolation.Filter{})
	require.ErrorIs(t, err, isolation.ErrSystemContextNotScoped)

	scoped, err := sys.ForTenant("T-1")
	require.NoError(t, err)
	require.NoError(t, e.repo.Create(ctx, scoped, &product{ID: "P-1"}))
	got, err := e.repo.Get(ctx, requestContext(t, "T-1"), "P-1")
	require.NoError(t, err)
	assert.Equal(t, "T-1", got.TenantID)
}
