package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/core"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	fetchLimit      = 8
)

// ErrSearchUnavailable is returned by Search when no index is configured.
var ErrSearchUnavailable = fmt.Errorf("%w: catalog search index not configured", core.ErrServiceUnavailable)

// Service is the product catalog. Every call takes the caller's request
// context and reaches data only through the isolation layer.
type Service struct {
	enforcer *isolation.Enforcer
	products *isolation.Repository[*Product]
	cache    *isolation.ScopedCache
	index    *isolation.ScopedIndex
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithCache enables read-through caching of single products.
func WithCache(c *isolation.ScopedCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithIndex enables full-text search and keeps the index in sync on writes.
func WithIndex(i *isolation.ScopedIndex) Option {
	return func(s *Service) { s.index = i }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(enforcer *isolation.Enforcer, store isolation.Store[*Product], opts ...Option) *Service {
	s := &Service{
		enforcer: enforcer,
		products: isolation.NewRepository(enforcer, store, "product"),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new product for the caller's tenant, then warms the cache
// and indexes it concurrently. Side-effect failures are logged; the product
// is already durable.
func (s *Service) Create(ctx context.Context, rc reqctx.Context, in CreateInput) (*Product, error) {
	if err := reqctx.Checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p := &Product{
		ID:        uuid.NewString(),
		TenantID:  strings.TrimSpace(in.TenantID),
		SKU:       in.SKU,
		Name:      in.Name,
		Category:  in.Category,
		Price:     in.Price,
		CreatedAt: s.now().UTC(),
	}
	if err := s.products.Create(ctx, rc, p); err != nil {
		return nil, err
	}

	if err := reqctx.Fanout(ctx, rc, s.cachePut(p), s.indexPut(p)); err != nil {
		s.logger.WarnContext(ctx, "catalog: product side effects failed",
			slog.String("product_id", p.ID), logger.Error(err))
	}
	return p, nil
}

// Get reads one product, through the cache when configured.
func (s *Service) Get(ctx context.Context, rc reqctx.Context, id string) (*Product, error) {
	if s.cache != nil {
		p, ok, err := isolation.GetJSON[*Product](ctx, s.cache, rc, cacheKey(id))
		switch {
		case err != nil && isIsolationError(err):
			return nil, err
		case err != nil:
			s.logger.WarnContext(ctx, "catalog: cache read failed", logger.Error(err))
		case ok:
			return p, nil
		}
	}

	p, err := s.products.Get(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if err := s.cachePut(p)(ctx, rc); err != nil {
		s.logger.WarnContext(ctx, "catalog: cache fill failed", logger.Error(err))
	}
	return p, nil
}

// GetMany reads products concurrently, preserving order and skipping ids
// that no longer exist.
func (s *Service) GetMany(ctx context.Context, rc reqctx.Context, ids []string) ([]*Product, error) {
	found, err := reqctx.Map(ctx, rc, fetchLimit, ids, func(ctx context.Context, rc reqctx.Context, id string) (*Product, error) {
		p, err := s.Get(ctx, rc, id)
		if errors.Is(err, isolation.ErrNotFound) {
			return nil, nil
		}
		return p, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Product, 0, len(found))
	for _, p := range found {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, rc reqctx.Context, in ListInput) ([]*Product, error) {
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	f := isolation.Filter{SortBy: "sku", Limit: limit, Offset: max(in.Offset, 0)}
	if in.Category != "" {
		f.Where = append(f.Where, isolation.Eq("category", in.Category))
	}
	return s.products.Find(ctx, rc, f)
}

// Search runs a full-text query over the caller's products.
func (s *Service) Search(ctx context.Context, rc reqctx.Context, text string, limit int) ([]*Product, error) {
	if s.index == nil {
		return nil, ErrSearchUnavailable
	}
	hits, err := s.index.Search(ctx, rc, isolation.Query{
		Text:   text,
		Fields: []string{"name", "sku", "category"},
		Limit:  min(max(limit, 1), maxPageSize),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return s.GetMany(ctx, rc, ids)
}

// UpdatePrice changes the price of one of the caller's products.
func (s *Service) UpdatePrice(ctx context.Context, rc reqctx.Context, id string, price int64) (*Product, error) {
	if price < 0 {
		return nil, errInvalidPrice()
	}
	p, err := s.products.Get(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	p.Price = price
	if err := s.products.Update(ctx, rc, p); err != nil {
		return nil, err
	}
	if err := reqctx.Fanout(ctx, rc, s.cacheDrop(id), s.indexPut(p)); err != nil {
		s.logger.WarnContext(ctx, "catalog: product side effects failed",
			slog.String("product_id", id), logger.Error(err))
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, rc reqctx.Context, id string) error {
	if err := s.products.Delete(ctx, rc, id); err != nil {
		return err
	}
	if err := reqctx.Fanout(ctx, rc, s.cacheDrop(id), s.indexDrop(id)); err != nil {
		s.logger.WarnContext(ctx, "catalog: product side effects failed",
			slog.String("product_id", id), logger.Error(err))
	}
	return nil
}

// Reindex rebuilds the search index of every tenant. sys must be an unscoped
// system context; each tenant is processed with its own derived context.
func (s *Service) Reindex(ctx context.Context, sys reqctx.Context, tenants isolation.TenantLister) (int, error) {
	if s.index == nil {
		return 0, ErrSearchUnavailable
	}
	var total atomic.Int64
	err := s.enforcer.ForEachTenant(ctx, sys, tenants, func(ctx context.Context, rc reqctx.Context) error {
		for offset := 0; ; offset += maxPageSize {
			page, err := s.products.Find(ctx, rc, isolation.Filter{SortBy: "sku", Limit: maxPageSize, Offset: offset})
			if err != nil {
				return err
			}
			for _, p := range page {
				if err := s.index.Index(ctx, rc, p.document()); err != nil {
					return err
				}
				total.Add(1)
			}
			if len(page) < maxPageSize {
				return nil
			}
		}
	})
	return int(total.Load()), err
}

func (s *Service) cachePut(p *Product) reqctx.Task {
	return func(ctx context.Context, rc reqctx.Context) error {
		if s.cache == nil {
			return nil
		}
		return isolation.SetJSON(ctx, s.cache, rc, cacheKey(p.ID), p)
	}
}

func (s *Service) cacheDrop(id string) reqctx.Task {
	return func(ctx context.Context, rc reqctx.Context) error {
		if s.cache == nil {
			return nil
		}
		return s.cache.Delete(ctx, rc, cacheKey(id))
	}
}

func (s *Service) indexPut(p *Product) reqctx.Task {
	return func(ctx context.Context, rc reqctx.Context) error {
		if s.index == nil {
			return nil
		}
		return s.index.Index(ctx, rc, p.document())
	}
}

func (s *Service) indexDrop(id string) reqctx.Task {
	return func(ctx context.Context, rc reqctx.Context) error {
		if s.index == nil {
			return nil
		}
		return s.index.Delete(ctx, rc, id)
	}
}

func cacheKey(id string) string {
	return "product:" + id
}

// isIsolationError reports errors that must never be degraded to a cache miss.
func isIsolationError(err error) bool {
	return errors.Is(err, isolation.ErrMissingContext) ||
		errors.Is(err, isolation.ErrSystemContextNotScoped) ||
		errors.Is(err, isolation.ErrCrossTenantViolation)
}
