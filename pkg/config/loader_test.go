package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/config"
)

type fileConfig struct {
	Name  string   `env:"STOREFRONT_TEST_NAME"`
	Port  int      `env:"STOREFRONT_TEST_PORT" envDefault:"8080"`
	Hosts []string `env:"STOREFRONT_TEST_HOSTS" envSeparator:","`
}

type requiredConfig struct {
	Secret string `env:"STOREFRONT_TEST_SECRET,required"`
}

// Tests in this file mutate the process environment and the shared cache, so
// they do not run in parallel.

func TestLoad(t *testing.T) {
	config.ResetCache()
	t.Setenv("STOREFRONT_TEST_NAME", "env")

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "env", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)

	t.Setenv("STOREFRONT_TEST_NAME", "changed")
	var cached fileConfig
	require.NoError(t, config.Load(&cached))
	assert.Equal(t, "env", cached.Name, "parsed once per type")

	config.ResetCache()
	var fresh fileConfig
	require.NoError(t, config.Load(&fresh))
	assert.Equal(t, "changed", fresh.Name)
}

func TestLoadNil(t *testing.T) {
	var cfg *fileConfig
	require.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoadRequired(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	assert.Panics(t, func() { config.MustLoad(&cfg) })

	t.Setenv("STOREFRONT_TEST_SECRET", "s3cret")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "s3cret", cfg.Secret)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_NAME", "")
	t.Setenv("STOREFRONT_TEST_PORT", "")
	t.Setenv("STOREFRONT_TEST_HOSTS", "")

	require.NoError(t, config.LoadEnv("testdata/.env.test", "testdata/.env.override"))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from_file", cfg.Name)
	assert.Equal(t, 9191, cfg.Port, "later files win")
	assert.Equal(t, []string{"a.shop.com", "b.shop.com"}, cfg.Hosts)

	require.ErrorIs(t, config.LoadEnv("testdata/missing.env"), config.ErrLoadingEnvFile)
	assert.Panics(t, func() { config.MustLoadEnv("testdata/missing.env") })
}
