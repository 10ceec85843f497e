package tenant

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// NewMemoryStore creates a store pre-populated with the given tenants.
func NewMemoryStore(tenants ...*Tenant) (*MemoryStore, error) {
	s := &MemoryStore{tenants: make(map[string]*Tenant)}
	for _, t := range tenants {
		if err := s.Save(context.Background(), t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type seedFile struct {
	Tenants []*Tenant `yaml:"tenants"`
}

// LoadSeedFile builds a MemoryStore from a YAML file of the form:
//
//	tenants:
//	  - id: T-1
//	    routing_key: acme
//	    custom_domain: shop.acme.com
//	    status: active
func LoadSeedFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenant seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse tenant seed file: %w", err)
	}
	return NewMemoryStore(seed.Tenants...)
}

func (s *MemoryStore) FindByKey(_ context.Context, key string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.IsDeleted() {
			continue
		}
		if slices.Contains(t.Keys(), key) {
			return t.Clone(), nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if !t.IsDeleted() {
			out = append(out, t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Tenant) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, t *Tenant) error {
	if err := Validate(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !t.IsDeleted() {
		keys := t.Keys()
		for _, other := range s.tenants {
			if other.ID == t.ID || other.IsDeleted() {
				continue
			}
			for _, k := range other.Keys() {
				if slices.Contains(keys, k) {
					return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
				}
			}
		}
	}

	c := t.Clone()
	c.RoutingKey = NormalizeKey(c.RoutingKey)
	c.CustomDomain = NormalizeKey(c.CustomDomain)
	now := time.Now().UTC()
	if prev, ok := s.tenants[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.tenants[c.ID] = c
	return nil
}
