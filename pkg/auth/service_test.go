package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

const testKey = "test-signing-key-with-enough-bytes!"

func newService(t *testing.T, opts ...auth.Option) *auth.Service {
	t.Helper()
	svc, err := auth.New(auth.Config{SigningKey: testKey, Issuer: "storefront", TokenTTL: time.Hour}, opts...)
	require.NoError(t, err)
	return svc
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := auth.New(auth.Config{})
	require.ErrorIs(t, err, auth.ErrMissingSigningKey)
}

func TestIssueAndParse(t *testing.T) {
	t.Parallel()

	t.Run("principal token", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		token, err := svc.Issue("P-100", "T-1", "staff")
		require.NoError(t, err)

		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "P-100", claims.Subject)
		assert.Equal(t, "T-1", claims.TenantID)
		assert.Equal(t, []string{"staff"}, claims.Roles)
		assert.False(t, claims.IsSystem())
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("system token", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		token, err := svc.IssueSystem("ops")
		require.NoError(t, err)

		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.True(t, claims.IsSystem())
		assert.Empty(t, claims.TenantID)
	})

	t.Run("system role with a tenant is not a system credential", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		token, err := svc.Issue("P-1", "T-1", reqctx.RoleSystem)
		require.NoError(t, err)
		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.False(t, claims.IsSystem())
	})

	t.Run("rejects missing subject and tenant", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Issue("", "T-1")
		require.ErrorIs(t, err, auth.ErrMissingSubject)
		_, err = svc.Issue("P-1", "")
		require.ErrorIs(t, err, auth.ErrInvalidToken)
		_, err = svc.IssueSystem("")
		require.ErrorIs(t, err, auth.ErrMissingSubject)
	})
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		past := time.Now().Add(-2 * time.Hour)
		token, err := newService(t, auth.WithClock(func() time.Time { return past })).Issue("P-1", "T-1")
		require.NoError(t, err)

		_, err = newService(t).Parse(token)
		require.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		other, err := auth.New(auth.Config{SigningKey: "another-key", Issuer: "storefront"})
		require.NoError(t, err)
		token, err := other.Issue("P-1", "T-1")
		require.NoError(t, err)

		_, err = newService(t).Parse(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		other, err := auth.New(auth.Config{SigningKey: testKey, Issuer: "elsewhere"})
		require.NoError(t, err)
		token, err := other.Issue("P-1", "T-1")
		require.NoError(t, err)

		_, err = newService(t).Parse(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		t.Parallel()
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "P-1",
				Issuer:    "storefront",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			TenantID: "T-1",
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = newService(t).Parse(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := newService(t).Parse("not.a.token")
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
