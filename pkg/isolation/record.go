package isolation

// TenantField is the name of the tenant discriminator in every backend.
const TenantField = "tenant_id"

// Record is a tenant-scoped entity. The tenant id is assigned by the
// enforcer on create and never changes afterwards.
type Record interface {
	GetID() string
	GetTenantID() string
	SetTenantID(tenantID string)
}

// Condition is an equality predicate on a record field.
type Condition struct {
	Field string
	Value any
}

// Eq builds an equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Value: value}
}

// Filter describes a list query. The tenant predicate is added by the
// enforcer; callers never set it.
type Filter struct {
	Where  []Condition
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// Scope is the proof that the enforcer checked the request context. Only
// this package can construct a non-zero Scope, so backends cannot be handed
// a tenant id that did not come from a verified context.
type Scope struct {
	tenantID string
}

func (s Scope) TenantID() string { return s.tenantID }

func (s Scope) IsZero() bool { return s.tenantID == "" }
