package tenant

import "time"

// Config holds tenant resolution settings.
type Config struct {
	Strategy       string        `env:"TENANT_STRATEGY" envDefault:"subdomain"`               // Strategy is "subdomain" or "path"; exactly one is active per deployment.
	BaseDomain     string        `env:"TENANT_BASE_DOMAIN"`                                   // BaseDomain is stripped from hosts by the subdomain strategy, e.g. "shop.com".
	CacheTTL       time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`                     // CacheTTL bounds how long resolved tenants stay cached.
	CacheSize      int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`                  // CacheSize is the maximum number of cached routing keys.
	OverrideHeader string        `env:"TENANT_OVERRIDE_HEADER" envDefault:"X-Tenant-Override"` // OverrideHeader is honored only with a system credential. Empty disables it.
	SeedFile       string        `env:"TENANT_SEED_FILE"`                                     // SeedFile populates the in-memory store when no database is configured.
}
