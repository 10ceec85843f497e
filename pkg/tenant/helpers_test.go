package tenant_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/storefront/pkg/tenant"
)

// mockStore is a testify mock of the tenant Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindByKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockStore) FindByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]*tenant.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenant.Tenant), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, t *tenant.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func newTenant(id, key string, status tenant.Status) *tenant.Tenant {
	return &tenant.Tenant{
		ID:         id,
		RoutingKey: key,
		Name:       key + " store",
		Status:     status,
	}
}

func newMemoryStore(t interface{ Fatalf(string, ...any) }, tenants ...*tenant.Tenant) *tenant.MemoryStore {
	s, err := tenant.NewMemoryStore(tenants...)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	return s
}

// gatedStore holds the first FindByKey after it has read the record, until
// release is closed. It lets a test interleave an invalidation between a
// store read and the cache fill that follows it.
type gatedStore struct {
	*tenant.MemoryStore
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(t interface{ Fatalf(string, ...any) }, tenants ...*tenant.Tenant) *gatedStore {
	return &gatedStore{
		MemoryStore: newMemoryStore(t, tenants...),
		read:        make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *gatedStore) FindByKey(ctx context.Context, key string) (*tenant.Tenant, error) {
	t, err := s.MemoryStore.FindByKey(ctx, key)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return t, err
}
