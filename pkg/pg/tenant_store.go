package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/storefront/pkg/tenant"
)

const tenantColumns = `id, routing_key, COALESCE(custom_domain, ''), name, status, created_at, updated_at`

// TenantStore keeps tenant records in the tenants table.
type TenantStore struct {
	db DB
}

func NewTenantStore(db DB) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) FindByKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE status <> 'deleted' AND (routing_key = $1 OR custom_domain = $1)
		 LIMIT 1`,
		tenant.NormalizeKey(key))
	return scanTenant(row)
}

func (s *TenantStore) FindByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *TenantStore) List(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE status <> 'deleted' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pg: list tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Save upserts t. Key conflicts with other live tenants are checked across
// routing keys and custom domains in the same transaction as the write.
func (s *TenantStore) Save(ctx context.Context, t *tenant.Tenant) error {
	if err := tenant.Validate(t); err != nil {
		return err
	}
	keys := t.Keys()
	now := time.Now().UTC()

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if !t.IsDeleted() {
			var owner string
			err := tx.QueryRow(ctx,
				`SELECT id FROM tenants
				 WHERE id <> $1 AND status <> 'deleted'
				   AND (routing_key = ANY($2) OR custom_domain = ANY($2))
				 LIMIT 1`,
				t.ID, keys).Scan(&owner)
			switch {
			case err == nil:
				return fmt.Errorf("%w: held by tenant %s", tenant.ErrDuplicateKey, owner)
			case !IsNotFoundError(err):
				return err
			}
		}

		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO tenants (id, routing_key, custom_domain, name, status, created_at, updated_at)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET
			   routing_key = EXCLUDED.routing_key,
			   custom_domain = EXCLUDED.custom_domain,
			   name = EXCLUDED.name,
			   status = EXCLUDED.status,
			   updated_at = EXCLUDED.updated_at`,
			t.ID, tenant.NormalizeKey(t.RoutingKey), tenant.NormalizeKey(t.CustomDomain),
			t.Name, string(t.Status), created, now)
		return err
	})
	switch {
	case err == nil:
		return nil
	case IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", tenant.ErrDuplicateKey, err)
	default:
		return fmt.Errorf("pg: save tenant %s: %w", t.ID, err)
	}
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t      tenant.Tenant
		status string
	)
	err := row.Scan(&t.ID, &t.RoutingKey, &t.CustomDomain, &t.Name, &status, &t.CreatedAt, &t.UpdatedAt)
	switch {
	case IsNotFoundError(err):
		return nil, tenant.ErrTenantNotFound
	case err != nil:
		return nil, fmt.Errorf("pg: scan tenant: %w", err)
	}
	t.Status = tenant.Status(status)
	return &t, nil
}
