package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrymomot/storefront/pkg/isolation"
)

// DocumentStore keeps records of one collection as JSONB documents in the
// shared records table. It implements isolation.Store. The tenant_id column is
// the owner of record; the copy inside the document is overwritten on read.
type DocumentStore[T isolation.Record] struct {
	db         DB
	collection string
}

func NewDocumentStore[T isolation.Record](db DB, collection string) *DocumentStore[T] {
	return &DocumentStore[T]{db: db, collection: collection}
}

func (s *DocumentStore[T]) Get(ctx context.Context, id string) (T, error) {
	var (
		zero     T
		tenantID string
		data     []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT tenant_id, data FROM records WHERE collection = $1 AND id = $2`,
		s.collection, id).Scan(&tenantID, &data)
	switch {
	case IsNotFoundError(err):
		return zero, isolation.ErrNotFound
	case err != nil:
		return zero, fmt.Errorf("pg: get %s/%s: %w", s.collection, id, err)
	}
	return decodeDocument[T](tenantID, data)
}

func (s *DocumentStore[T]) Find(ctx context.Context, scope isolation.Scope, f isolation.Filter) ([]T, error) {
	sql, args, err := buildFind(s.collection, scope, f)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: find %s: %w", s.collection, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var (
			tenantID string
			data     []byte
		)
		if err := rows.Scan(&tenantID, &data); err != nil {
			return nil, fmt.Errorf("pg: scan %s: %w", s.collection, err)
		}
		rec, err := decodeDocument[T](tenantID, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *DocumentStore[T]) Insert(ctx context.Context, scope isolation.Scope, rec T) error {
	data, err := encodeDocument(scope, rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO records (collection, id, tenant_id, data) VALUES ($1, $2, $3, $4)`,
		s.collection, rec.GetID(), scope.TenantID(), data)
	switch {
	case IsDuplicateKeyError(err):
		return isolation.ErrConflict
	case err != nil:
		return fmt.Errorf("pg: insert %s/%s: %w", s.collection, rec.GetID(), err)
	}
	return nil
}

func (s *DocumentStore[T]) Update(ctx context.Context, scope isolation.Scope, rec T) error {
	data, err := encodeDocument(scope, rec)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE records SET data = $4, updated_at = now()
		 WHERE collection = $1 AND id = $2 AND tenant_id = $3`,
		s.collection, rec.GetID(), scope.TenantID(), data)
	if err != nil {
		return fmt.Errorf("pg: update %s/%s: %w", s.collection, rec.GetID(), err)
	}
	if tag.RowsAffected() == 0 {
		return isolation.ErrNotFound
	}
	return nil
}

func (s *DocumentStore[T]) Delete(ctx context.Context, scope isolation.Scope, id string) error {
	if scope.IsZero() {
		return ErrUnscopedQuery
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2 AND tenant_id = $3`,
		s.collection, id, scope.TenantID())
	if err != nil {
		return fmt.Errorf("pg: delete %s/%s: %w", s.collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return isolation.ErrNotFound
	}
	return nil
}

func encodeDocument[T isolation.Record](scope isolation.Scope, rec T) ([]byte, error) {
	if scope.IsZero() {
		return nil, ErrUnscopedQuery
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("pg: encode record: %w", err)
	}
	return data, nil
}

func decodeDocument[T isolation.Record](tenantID string, data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("pg: decode record: %w", err)
	}
	rec.SetTenantID(tenantID)
	return rec, nil
}
