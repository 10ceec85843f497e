package isolation

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store shared by all tenants, the way a single
// database table would be. Records are kept encoded so callers never share
// memory with the store.
type MemoryStore[T Record] struct {
	mu   sync.RWMutex
	rows map[string]memoryRow
}

type memoryRow struct {
	tenantID string
	data     []byte
	fields   map[string]any
}

func NewMemoryStore[T Record]() *MemoryStore[T] {
	return &MemoryStore[T]{rows: make(map[string]memoryRow)}
}

func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return decode[T](row.data)
}

func (s *MemoryStore[T]) Find(_ context.Context, scope Scope, f Filter) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]memoryRow, 0)
	for _, row := range s.rows {
		if row.tenantID == scope.tenantID && matchesFilters(row.fields, f.Where) {
			rows = append(rows, row)
		}
	}

	sortBy := cmp.Or(f.SortBy, "id")
	slices.SortFunc(rows, func(a, b memoryRow) int {
		c := compareValues(a.fields[sortBy], b.fields[sortBy])
		if f.Desc {
			return -c
		}
		return c
	})

	rows = page(rows, f.Offset, f.Limit)
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := decode[T](row.data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore[T]) Insert(_ context.Context, scope Scope, rec T) error {
	row, err := encode(scope, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.GetID()]; ok {
		return ErrConflict
	}
	s.rows[rec.GetID()] = row
	return nil
}

func (s *MemoryStore[T]) Update(_ context.Context, scope Scope, rec T) error {
	row, err := encode(scope, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rows[rec.GetID()]
	if !ok || existing.tenantID != scope.tenantID {
		return ErrNotFound
	}
	s.rows[rec.GetID()] = row
	return nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, scope Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rows[id]
	if !ok || existing.tenantID != scope.tenantID {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func encode[T Record](scope Scope, rec T) (memoryRow, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return memoryRow{}, fmt.Errorf("isolation: encode record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return memoryRow{}, fmt.Errorf("isolation: record must encode as an object: %w", err)
	}
	return memoryRow{tenantID: scope.tenantID, data: data, fields: fields}, nil
}

func decode[T Record](data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("isolation: decode record: %w", err)
	}
	return rec, nil
}

func compareValues(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func page[E any](items []E, offset, limit int) []E {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
