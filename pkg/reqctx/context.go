package reqctx

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Kind is the closed set of context variants the isolation layer understands.
type Kind uint8

const (
	// KindRequest is a context built for one inbound request of one tenant.
	KindRequest Kind = iota + 1
	// KindSystem is a platform job context. It carries no tenant until it is
	// narrowed with ForTenant.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// RoleSystem marks principals allowed to act on behalf of the platform.
const RoleSystem = "system"

// Context is the immutable request-scoped value carried through every unit of
// work of a request. The zero value is not a valid context.
type Context struct {
	kind          Kind
	tenantID      string
	principalID   string
	correlationID string
	roles         []string
}

// New builds the request context right after tenant resolution.
// An empty correlation id is replaced with a generated one.
func New(tenantID, correlationID string) (Context, error) {
	if err := validateTenantID(tenantID); err != nil {
		return Context{}, err
	}
	return Context{
		kind:          KindRequest,
		tenantID:      tenantID,
		correlationID: correlationOrNew(correlationID),
	}, nil
}

// NewSystem builds an unscoped system context for platform-wide jobs.
func NewSystem(correlationID string) Context {
	return Context{
		kind:          KindSystem,
		correlationID: correlationOrNew(correlationID),
		roles:         []string{RoleSystem},
	}
}

// WithPrincipal returns a copy carrying the authenticated principal and roles.
// The receiver is left untouched.
func (c Context) WithPrincipal(principalID string, roles ...string) Context {
	next := c
	next.principalID = principalID
	next.roles = normalizeRoles(append(slices.Clone(c.roles), roles...))
	return next
}

// WithRoles returns a copy with roles added to the existing ones.
func (c Context) WithRoles(roles ...string) Context {
	next := c
	next.roles = normalizeRoles(append(slices.Clone(c.roles), roles...))
	return next
}

// ForTenant narrows a system context to a single tenant. The result keeps the
// system kind and correlation id, so every per-tenant step of a job stays
// traceable to the job that started it.
func (c Context) ForTenant(tenantID string) (Context, error) {
	if c.kind != KindSystem {
		return Context{}, ErrNotSystemContext
	}
	if c.tenantID != "" {
		return Context{}, ErrAlreadyScoped
	}
	if err := validateTenantID(tenantID); err != nil {
		return Context{}, err
	}
	next := c
	next.tenantID = tenantID
	next.roles = slices.Clone(c.roles)
	return next, nil
}

func (c Context) Kind() Kind { return c.kind }
func (c Context) TenantID() string { return c.tenantID }
func (c Context) PrincipalID() string { return c.principalID }
func (c Context) CorrelationID() string { return c.correlationID }
func (c Context) IsZero() bool { return c.kind == 0 }
func (c Context) IsSystem() bool { return c.kind == KindSystem }
func (c Context) IsGuest() bool { return c.principalID == "" }
func (c Context) Roles() []string { return slices.Clone(c.roles) }
func (c Context) HasRole(role string) bool { return slices.Contains(c.roles, role) }

// Scoped reports whether data access is allowed: the context is valid and
// bound to exactly one tenant.
func (c Context) Scoped() bool {
	return c.kind != 0 && c.tenantID != ""
}

// Equal reports whether both contexts carry the same values.
func (c Context) Equal(o Context) bool {
	return c.kind == o.kind &&
		c.tenantID == o.tenantID &&
		c.principalID == o.principalID &&
		c.correlationID == o.correlationID &&
		slices.Equal(c.roles, o.roles)
}

// validateTenantID rejects ids that could break key namespacing.
func validateTenantID(id string) error {
	if id == "" {
		return ErrEmptyTenantID
	}
	if strings.ContainsAny(id, ": \t\r\n") {
		return ErrInvalidTenantID
	}
	return nil
}

func correlationOrNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func normalizeRoles(roles []string) []string {
	out := roles[:0]
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
