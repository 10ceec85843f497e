package isolation

import (
	"context"
	"strings"

	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

const keyPrefix = "tenant:"

// ScopedKey is a cache or search key namespaced by tenant. Its string form is
// tenant:{tenantID}:{domainKey}. Only the enforcer builds one from a request
// context, so a key can never be computed for a tenant the caller is not in.
type ScopedKey struct {
	tenantID  string
	domainKey string
}

func (k ScopedKey) TenantID() string  { return k.tenantID }
func (k ScopedKey) DomainKey() string { return k.domainKey }
func (k ScopedKey) IsZero() bool      { return k.tenantID == "" }

func (k ScopedKey) String() string {
	return keyPrefix + k.tenantID + ":" + k.domainKey
}

// TenantPrefix returns the prefix shared by every key of tenantID.
func TenantPrefix(tenantID string) string {
	return keyPrefix + tenantID + ":"
}

// Key builds the scoped form of domainKey for the tenant of rc. A missing
// context is reported under OpKey.
func (e *Enforcer) Key(ctx context.Context, rc reqctx.Context, domainKey string) (ScopedKey, error) {
	scope, err := e.Scope(ctx, rc, OpKey)
	if err != nil {
		return ScopedKey{}, err
	}
	return scope.key(domainKey)
}

func (s Scope) key(domainKey string) (ScopedKey, error) {
	if strings.TrimSpace(domainKey) == "" {
		return ScopedKey{}, ErrInvalidKey
	}
	return ScopedKey{tenantID: s.tenantID, domainKey: domainKey}, nil
}
