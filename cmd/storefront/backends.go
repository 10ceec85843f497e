package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/pkg/audit"
	"github.com/dmitrymomot/storefront/pkg/config"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/mongo"
	"github.com/dmitrymomot/storefront/pkg/opensearch"
	"github.com/dmitrymomot/storefront/pkg/pg"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/tenant"
)

const productsCollection = "products"

// backends owns the external connections of the process.
type backends struct {
	log    *slog.Logger
	checks []httpserver.Check

	pool     *pgxpool.Pool
	pgCfg    pg.Config
	rdb      *goredis.Client
	redisCfg redis.Config
	mongoDB  *mongodriver.Database
	mongoCfg mongo.Config
	search   *opensearch.SearchBackend

	auditWriter *audit.AsyncWriter
	closeOnce   sync.Once
}

func (b *backends) connect(ctx context.Context, cfg appConfig) error {
	if cfg.StoreBackend == "pg" {
		if err := config.Load(&b.pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, b.pgCfg)
		if err != nil {
			return err
		}
		b.pool = pool
		if err := pg.Migrate(ctx, pool, b.pgCfg, b.log); err != nil {
			return err
		}
		b.checks = append(b.checks, httpserver.Check{Name: "pg", Probe: pg.Healthcheck(pool)})
	}

	if cfg.CacheBackend == "redis" {
		if err := config.Load(&b.redisCfg); err != nil {
			return err
		}
		rdb, err := redis.Connect(ctx, b.redisCfg)
		if err != nil {
			return err
		}
		b.rdb = rdb
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(rdb)})
	}

	if cfg.StoreBackend == "mongo" || cfg.AuditBackend == "mongo" {
		if err := config.Load(&b.mongoCfg); err != nil {
			return err
		}
		db, err := mongo.NewWithDatabase(ctx, b.mongoCfg)
		if err != nil {
			return err
		}
		b.mongoDB = db
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(db.Client())})
	}

	if cfg.SearchBackend == "opensearch" {
		var osCfg opensearch.Config
		if err := config.Load(&osCfg); err != nil {
			return err
		}
		client, err := opensearch.New(ctx, osCfg)
		if err != nil {
			return err
		}
		b.search = opensearch.NewSearchBackend(client, osCfg)
		if err := b.search.EnsureIndex(ctx); err != nil {
			return err
		}
		b.checks = append(b.checks, httpserver.Check{Name: "opensearch", Probe: opensearch.Healthcheck(client)})
	}
	return nil
}

// audit builds the violation trail. Every event is logged; with the mongo
// backend it is also persisted in batches and served to operators from there.
func (b *backends) audit(ctx context.Context, cfg appConfig) (*audit.Logger, *audit.Reader, error) {
	slogWriter := audit.NewSlogWriter(b.log)
	if cfg.AuditBackend != "mongo" {
		mem := audit.NewMemoryStorage()
		return audit.NewLogger(audit.MultiWriter{slogWriter, mem}), audit.NewReader(mem), nil
	}

	storage := mongo.NewAuditStorage(b.mongoDB, b.mongoCfg.AuditCollection)
	if err := storage.EnsureIndexes(ctx); err != nil {
		return nil, nil, err
	}
	b.auditWriter = audit.NewAsyncWriter(storage, audit.AsyncOptions{})
	return audit.NewLogger(audit.MultiWriter{slogWriter, b.auditWriter}), audit.NewReader(storage), nil
}

func (b *backends) tenantStore(cfg appConfig, tenantCfg tenant.Config) (tenant.Store, error) {
	if cfg.StoreBackend == "pg" {
		return pg.NewTenantStore(b.pool), nil
	}
	if tenantCfg.SeedFile == "" {
		b.log.Warn("storefront: no tenant seed file, starting with an empty registry")
		return tenant.NewMemoryStore()
	}
	return tenant.LoadSeedFile(tenantCfg.SeedFile)
}

func (b *backends) tenantCache(cfg appConfig, tenantCfg tenant.Config) tenant.Cache {
	if cfg.CacheBackend == "redis" {
		return redis.NewTenantCache(b.rdb, b.redisCfg)
	}
	return tenant.NewMemoryCache(tenantCfg.CacheSize)
}

func (b *backends) catalog(ctx context.Context, cfg appConfig, enforcer *isolation.Enforcer) (*catalog.Service, error) {
	var store isolation.Store[*catalog.Product]
	switch cfg.StoreBackend {
	case "pg":
		store = pg.NewDocumentStore[*catalog.Product](b.pool, productsCollection)
	case "mongo":
		coll := mongo.NewCollection[*catalog.Product](b.mongoDB, productsCollection)
		if err := coll.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		store = coll
	case "memory", "":
		store = isolation.NewMemoryStore[*catalog.Product]()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	var cache isolation.CacheBackend = isolation.NewMemoryCache(10_000)
	if cfg.CacheBackend == "redis" {
		cache = redis.NewStorage(b.rdb, b.redisCfg)
	}
	opts := []catalog.Option{
		catalog.WithCache(isolation.NewScopedCache(enforcer, cache, cfg.CatalogCacheTTL)),
		catalog.WithLogger(b.log),
	}

	switch cfg.SearchBackend {
	case "opensearch":
		opts = append(opts, catalog.WithIndex(isolation.NewScopedIndex(enforcer, b.search, "product")))
	case "memory", "":
		opts = append(opts, catalog.WithIndex(isolation.NewScopedIndex(enforcer, isolation.NewMemoryIndex(), "product")))
	}
	return catalog.NewService(enforcer, store, opts...), nil
}

// close releases every connection once. It runs as the server stop hook and
// again on return from run.
func (b *backends) close() {
	b.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if b.auditWriter != nil {
			if err := b.auditWriter.Close(ctx); err != nil {
				b.log.Error("storefront: audit flush failed", logger.Error(err))
			}
		}
		if b.mongoDB != nil {
			if err := b.mongoDB.Client().Disconnect(ctx); err != nil {
				b.log.Error("storefront: mongo disconnect failed", logger.Error(err))
			}
		}
		if b.rdb != nil {
			if err := b.rdb.Close(); err != nil {
				b.log.Error("storefront: redis close failed", logger.Error(err))
			}
		}
		if b.pool != nil {
			b.pool.Close()
		}
	})
}
