package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_URL", "https://store.example.com")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.Store.Backend)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.GlobalTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ChannelTTL)
	assert.Equal(t, "0 * * * *", cfg.Cache.SweepCron)
	assert.Equal(t, 1000, cfg.Fetch.PageSize)
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
	assert.Equal(t, "gemini-2.5-flash", cfg.Research.Model)
	assert.Equal(t, ":8080", cfg.System.HTTPAddr)
}

func TestNewFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/seo")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_GLOBAL_TTL", "1h")
	t.Setenv("CACHE_CHANNEL_TTL", "30s")
	t.Setenv("FETCH_PAGE_SIZE", "250")
	t.Setenv("RESEARCH_API_KEYS", "k1, k2 ,,k3")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.GlobalTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.ChannelTTL)
	assert.Equal(t, 250, cfg.Fetch.PageSize)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Research.APIKeys)
}

func TestValidateRequiresStoreURLForRest(t *testing.T) {
	t.Setenv("STORE_BACKEND", "rest")
	t.Setenv("STORE_URL", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_URL")
}

func TestValidateRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestValidateRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("STORE_URL", "https://store.example.com")
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_BACKEND")
}

func TestOptionsApplyAfterEnv(t *testing.T) {
	t.Setenv("STORE_URL", "https://store.example.com")

	cfg, err := NewFromEnv(func(c *Config) {
		c.Fetch.PageSize = 50
	})
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Fetch.PageSize)
}
