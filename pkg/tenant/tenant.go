package tenant

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// Tenant is an independently branded store. Request handling code only ever
// reads tenants; the provisioning flow is the single writer.
type Tenant struct {
	ID           string    `json:"id" yaml:"id"`
	RoutingKey   string    `json:"routing_key" yaml:"routing_key"`
	CustomDomain string    `json:"custom_domain,omitempty" yaml:"custom_domain,omitempty"`
	Name         string    `json:"name" yaml:"name"`
	Status       Status    `json:"status" yaml:"status"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

func (t *Tenant) IsActive() bool  { return t.Status == StatusActive }
func (t *Tenant) IsDeleted() bool { return t.Status == StatusDeleted }

// Clone returns a copy so cached values are never shared with callers.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Keys returns the normalized lookup keys the tenant answers to.
func (t *Tenant) Keys() []string {
	keys := []string{NormalizeKey(t.RoutingKey)}
	if t.CustomDomain != "" {
		keys = append(keys, NormalizeKey(t.CustomDomain))
	}
	return keys
}

// Store is the backing store of tenant records.
type Store interface {
	// FindByKey returns the tenant whose routing key or custom domain equals the
	// normalized key. Returns ErrTenantNotFound if none matches.
	FindByKey(ctx context.Context, key string) (*Tenant, error)

	// FindByID returns ErrTenantNotFound if no tenant has the id.
	FindByID(ctx context.Context, id string) (*Tenant, error)

	// List returns every tenant that is not deleted.
	List(ctx context.Context) ([]*Tenant, error)

	// Save inserts or replaces a tenant. Returns ErrDuplicateKey when the
	// routing key or custom domain is taken by another non-deleted tenant.
	Save(ctx context.Context, t *Tenant) error
}

// NormalizeKey folds a routing key or custom domain for case-insensitive
// comparison. Trailing dots of fully qualified hosts are dropped.
func NormalizeKey(key string) string {
	key = strings.TrimSuffix(strings.TrimSpace(key), ".")
	// cases.Caser is stateful, so a new one is used per call.
	return cases.Fold().String(key)
}
