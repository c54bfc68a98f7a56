package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Record Store:
// - STORE_BACKEND: "rest" or "postgres" (default: rest)
// - STORE_URL: base URL of the hosted store's REST surface
// - STORE_API_KEY: API key for the hosted store
// - STORE_TIMEOUT: request timeout in seconds (default: 30)
// - POSTGRES_DSN: direct database DSN (required for the postgres backend)
//
// Cache:
// - CACHE_BACKEND: "memory", "sqlite" or "redis" (default: sqlite)
// - CACHE_DB_PATH: sqlite file path (default: data/cache.db)
// - CACHE_GLOBAL_TTL: global namespace TTL (default: 24h)
// - CACHE_CHANNEL_TTL: channel namespace TTL (default: 5m)
// - CACHE_SWEEP_CRON: janitor schedule (default: "0 * * * *")
// - REDIS_ADDR / REDIS_PASSWORD / REDIS_DB / REDIS_KEY_PREFIX
//
// Fetch:
// - FETCH_PAGE_SIZE: rows per page (default: 1000)
// - FETCH_CONCURRENCY: in-flight page requests (default: 3)
//
// Research Console:
// - RESEARCH_API_KEYS: comma-separated credentials tried in order
// - RESEARCH_API_URL: API endpoint (default: https://generativelanguage.googleapis.com)
// - RESEARCH_MODEL: model name (default: gemini-2.5-flash)
// - RESEARCH_TIMEOUT: request timeout in seconds (default: 60)
//
// System:
// - HTTP_ADDR: listen address (default: :8080)
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	Store    StoreConfig    `json:"store"`
	Cache    CacheConfig    `json:"cache"`
	Fetch    FetchConfig    `json:"fetch"`
	Research ResearchConfig `json:"research"`
	System   SystemConfig   `json:"system"`
}

type StoreConfig struct {
	Backend     string `json:"backend"`
	URL         string `json:"url"`
	APIKey      string `json:"api_key"`
	Timeout     int    `json:"timeout"`
	PostgresDSN string `json:"postgres_dsn"`
}

type CacheConfig struct {
	Backend        string        `json:"backend"`
	DBPath         string        `json:"db_path"`
	GlobalTTL      time.Duration `json:"global_ttl"`
	ChannelTTL     time.Duration `json:"channel_ttl"`
	SweepCron      string        `json:"sweep_cron"`
	RedisAddr      string        `json:"redis_addr"`
	RedisPassword  string        `json:"redis_password"`
	RedisDB        int           `json:"redis_db"`
	RedisKeyPrefix string        `json:"redis_key_prefix"`
}

type FetchConfig struct {
	PageSize    int `json:"page_size"`
	Concurrency int `json:"concurrency"`
}

// ResearchConfig holds the generative-search API settings. Keys are tried
// in order until one succeeds.
type ResearchConfig struct {
	APIKeys []string `json:"api_keys"`
	APIURL  string   `json:"api_url"`
	Model   string   `json:"model"`
	Timeout int      `json:"timeout"`
}

type SystemConfig struct {
	HTTPAddr string `json:"http_addr"`
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Store: StoreConfig{
			Backend:     getEnvString("STORE_BACKEND", "rest"),
			URL:         getEnvString("STORE_URL", ""),
			APIKey:      getEnvString("STORE_API_KEY", ""),
			Timeout:     getEnvInt("STORE_TIMEOUT", 30),
			PostgresDSN: getEnvString("POSTGRES_DSN", ""),
		},
		Cache: CacheConfig{
			Backend:        getEnvString("CACHE_BACKEND", "sqlite"),
			DBPath:         getEnvString("CACHE_DB_PATH", "data/cache.db"),
			GlobalTTL:      getEnvDuration("CACHE_GLOBAL_TTL", 24*time.Hour),
			ChannelTTL:     getEnvDuration("CACHE_CHANNEL_TTL", 5*time.Minute),
			SweepCron:      getEnvString("CACHE_SWEEP_CRON", "0 * * * *"),
			RedisAddr:      getEnvString("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getEnvString("REDIS_PASSWORD", ""),
			RedisDB:        getEnvInt("REDIS_DB", 0),
			RedisKeyPrefix: getEnvString("REDIS_KEY_PREFIX", "seomgr"),
		},
		Fetch: FetchConfig{
			PageSize:    getEnvInt("FETCH_PAGE_SIZE", 1000),
			Concurrency: getEnvInt("FETCH_CONCURRENCY", 3),
		},
		Research: ResearchConfig{
			APIKeys: getEnvStringList("RESEARCH_API_KEYS"),
			APIURL:  getEnvString("RESEARCH_API_URL", "https://generativelanguage.googleapis.com"),
			Model:   getEnvString("RESEARCH_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvInt("RESEARCH_TIMEOUT", 60),
		},
		System: SystemConfig{
			HTTPAddr: getEnvString("HTTP_ADDR", ":8080"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	switch c.Store.Backend {
	case "rest":
		if c.Store.URL == "" {
			return fmt.Errorf("STORE_URL is required for the rest backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value (e.g. "24h", "5m") with default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvStringList splits a comma-separated environment value, dropping
// empty entries.
func getEnvStringList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ret := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ret = append(ret, trimmed)
		}
	}
	return ret
}
