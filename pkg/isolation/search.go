package isolation

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Document is a searchable projection of a record.
type Document struct {
	ID       string         `json:"id"`
	TenantID string         `json:"tenant_id"`
	Fields   map[string]any `json:"fields"`
}

// Query is a full-text query with optional equality filters.
type Query struct {
	Text    string
	Fields  []string // fields matched by Text; empty means all string fields
	Filters []Condition
	Limit   int
}

// SearchBackend is a shared search index. Every call carries the tenant scope;
// implementations must filter and route by it.
type SearchBackend interface {
	Index(ctx context.Context, scope Scope, doc Document) error
	Search(ctx context.Context, scope Scope, q Query) ([]Document, error)
	Delete(ctx context.Context, scope Scope, id string) error
}

// ScopedIndex is the only way application code reaches the search index.
type ScopedIndex struct {
	enforcer *Enforcer
	backend  SearchBackend
	resource string
}

// NewScopedIndex wraps backend for one resource type. The resource name
// appears in violation records.
func NewScopedIndex(e *Enforcer, backend SearchBackend, resource string) *ScopedIndex {
	return &ScopedIndex{enforcer: e, backend: backend, resource: resource}
}

// Index stores doc under the caller's tenant, overwriting doc.TenantID.
func (i *ScopedIndex) Index(ctx context.Context, rc reqctx.Context, doc Document) error {
	scope, err := i.enforcer.Scope(ctx, rc, OpIndex)
	if err != nil {
		return err
	}
	if doc.TenantID != "" && doc.TenantID != scope.tenantID {
		return i.enforcer.violation(ctx, rc, OpIndex, doc.TenantID, i.resource, doc.ID)
	}
	doc.TenantID = scope.tenantID
	return i.backend.Index(ctx, scope, doc)
}

// Search queries the caller's documents. Hits owned by another tenant are
// dropped and audited.
func (i *ScopedIndex) Search(ctx context.Context, rc reqctx.Context, q Query) ([]Document, error) {
	scope, err := i.enforcer.Scope(ctx, rc, OpSearch)
	if err != nil {
		return nil, err
	}

	filters := make([]Condition, 0, len(q.Filters))
	for _, c := range q.Filters {
		if c.Field != TenantField {
			filters = append(filters, c)
			continue
		}
		if v := fmt.Sprint(c.Value); v != scope.tenantID {
			return nil, i.enforcer.violation(ctx, rc, OpSearch, v, i.resource, "")
		}
	}
	q.Filters = filters

	hits, err := i.backend.Search(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	out := hits[:0]
	for _, d := range hits {
		if d.TenantID != scope.tenantID {
			_ = i.enforcer.violation(ctx, rc, OpSearch, d.TenantID, i.resource, d.ID)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (i *ScopedIndex) Delete(ctx context.Context, rc reqctx.Context, id string) error {
	scope, err := i.enforcer.Scope(ctx, rc, OpUnindex)
	if err != nil {
		return err
	}
	return i.backend.Delete(ctx, scope, id)
}

// MemoryIndex is an in-process SearchBackend shared by all tenants.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document // keyed by tenant prefix + id
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

func (m *MemoryIndex) Index(_ context.Context, scope Scope, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.Fields = maps.Clone(doc.Fields)
	m.docs[TenantPrefix(scope.tenantID)+doc.ID] = doc
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, scope Scope, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []Document
	for _, d := range m.docs {
		if d.TenantID != scope.tenantID || !matchesFilters(d.Fields, q.Filters) {
			continue
		}
		if text != "" && !matchesText(d.Fields, q.Fields, text) {
			continue
		}
		d.Fields = maps.Clone(d.Fields)
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Document) int { return strings.Compare(a.ID, b.ID) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryIndex) Delete(_ context.Context, scope Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, TenantPrefix(scope.tenantID)+id)
	return nil
}

func matchesText(fields map[string]any, names []string, text string) bool {
	if len(names) == 0 {
		names = slices.Collect(maps.Keys(fields))
	}
	for _, name := range names {
		if s, ok := fields[name].(string); ok && strings.Contains(strings.ToLower(s), text) {
			return true
		}
	}
	return false
}

func matchesFilters(fields map[string]any, filters []Condition) bool {
	for _, c := range filters {
		if fmt.Sprint(fields[c.Field]) != fmt.Sprint(c.Value) {
			return false
		}
	}
	return true
}
