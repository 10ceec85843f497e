// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tags). Each configuration type is parsed
// once per process and cached; LoadEnv and ResetCache drop the cache.
//
//	type Config struct {
//		Strategy   string `env:"TENANT_STRATEGY" envDefault:"subdomain"`
//		BaseDomain string `env:"TENANT_BASE_DOMAIN"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
