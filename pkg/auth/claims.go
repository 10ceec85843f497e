package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Claims are the token claims. Subject is the principal id.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// IsSystem reports whether the claims describe a system credential: the
// system role and no tenant.
func (c *Claims) IsSystem() bool {
	return c.TenantID == "" && slices.Contains(c.Roles, reqctx.RoleSystem)
}
