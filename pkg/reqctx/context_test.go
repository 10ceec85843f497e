package reqctx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("builds guest request context", func(t *testing.T) {
		t.Parallel()

		rc, err := reqctx.New("T-1", "corr-1")
		require.NoError(t, err)
		assert.Equal(t, reqctx.KindRequest, rc.Kind())
		assert.Equal(t, "T-1", rc.TenantID())
		assert.Equal(t, "corr-1", rc.CorrelationID())
		assert.True(t, rc.IsGuest())
		assert.True(t, rc.Scoped())
		assert.False(t, rc.IsSystem())
	})

	t.Run("generates correlation id", func(t *testing.T) {
		t.Parallel()

		rc, err := reqctx.New("T-1", "")
		require.NoError(t, err)
		assert.NotEmpty(t, rc.CorrelationID())
	})

	t.Run("rejects empty tenant", func(t *testing.T) {
		t.Parallel()

		_, err := reqctx.New("", "corr")
		require.ErrorIs(t, err, reqctx.ErrEmptyTenantID)
	})

	t.Run("rejects tenant ids that break key namespacing", func(t *testing.T) {
		t.Parallel()

		_, err := reqctx.New("T:1", "corr")
		require.ErrorIs(t, err, reqctx.ErrInvalidTenantID)
		_, err = reqctx.New("T 1", "corr")
		require.ErrorIs(t, err, reqctx.ErrInvalidTenantID)
	})
}

func TestWithPrincipal(t *testing.T) {
	t.Parallel()

	base, err := reqctx.New("T-1", "corr")
	require.NoError(t, err)

	authed := base.WithPrincipal("P-100", "staff", "admin", "staff", " ")

	assert.True(t, base.IsGuest(), "original is unchanged")
	assert.Empty(t, base.Roles())
	assert.Equal(t, "P-100", authed.PrincipalID())
	assert.Equal(t, []string{"admin", "staff"}, authed.Roles())
	assert.True(t, authed.HasRole("admin"))
	assert.Equal(t, base.TenantID(), authed.TenantID())
	assert.Equal(t, base.CorrelationID(), authed.CorrelationID())

	roles := authed.Roles()
	roles[0] = "owner"
	assert.False(t, authed.HasRole("owner"), "roles are copied")

	elevated := authed.WithRoles("owner")
	assert.Equal(t, []string{"admin", "owner", "staff"}, elevated.Roles())
	assert.False(t, authed.HasRole("owner"))
	assert.Equal(t, "P-100", elevated.PrincipalID())
}

func TestSystemContext(t *testing.T) {
	t.Parallel()

	sys := reqctx.NewSystem("job-1")
	assert.True(t, sys.IsSystem())
	assert.True(t, sys.HasRole(reqctx.RoleSystem))
	assert.False(t, sys.Scoped(), "system context carries no tenant")

	scoped, err := sys.ForTenant("T-1")
	require.NoError(t, err)
	assert.True(t, scoped.Scoped())
	assert.True(t, scoped.IsSystem())
	assert.Equal(t, "job-1", scoped.CorrelationID())
	assert.False(t, sys.Scoped(), "original is unchanged")

	_, err = scoped.ForTenant("T-2")
	require.ErrorIs(t, err, reqctx.ErrAlreadyScoped)

	rc, err := reqctx.New("T-1", "corr")
	require.NoError(t, err)
	_, err = rc.ForTenant("T-2")
	require.ErrorIs(t, err, reqctx.ErrNotSystemContext)

	_, err = sys.ForTenant("")
	require.ErrorIs(t, err, reqctx.ErrEmptyTenantID)
}

func TestAttachFromContext(t *testing.T) {
	t.Parallel()

	_, err := reqctx.FromContext(context.Background())
	require.ErrorIs(t, err, reqctx.ErrMissingContext)

	_, err = reqctx.FromContext(reqctx.Attach(context.Background(), reqctx.Context{}))
	require.ErrorIs(t, err, reqctx.ErrMissingContext, "zero value is not a context")

	rc, err := reqctx.New("T-1", "corr")
	require.NoError(t, err)
	got, err := reqctx.FromContext(reqctx.Attach(context.Background(), rc))
	require.NoError(t, err)
	assert.True(t, rc.Equal(got))

	assert.Panics(t, func() { reqctx.MustFromContext(context.Background()) })
}
