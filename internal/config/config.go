// Package config loads the application configuration from files,
// environment variables and defaults via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/goscrape/internal/logger"
)

// Default configuration values.
const (
	DefaultUserAgent   = "goscrape/1.0"
	DefaultTimeout     = 30 * time.Second
	DefaultRetries     = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxInflight = 8
)

// Config is the root application configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Logger  logger.Config `mapstructure:"logger"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// AppConfig identifies the application instance.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ScraperConfig configures the transport and the engine.
type ScraperConfig struct {
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent"`
	// RequestTimeout bounds one fetch attempt.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// MaxRedirects limits redirect following.
	MaxRedirects int `mapstructure:"max_redirects"`
	// MaxRetries bounds transient fetch retries.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the pause between retry attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// Concurrency > 1 expands sibling subtrees in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// MaxInflight bounds concurrent transport calls.
	MaxInflight int64 `mapstructure:"max_inflight"`
	// Update forces refresh of updatable stages.
	Update bool `mapstructure:"update"`
}

// CacheConfig selects the cache backends. Per the engine's contract,
// HTML and Processed are booleans: true picks a default-located
// backend, false disables that cache.
type CacheConfig struct {
	// HTML enables raw page body caching.
	HTML bool `mapstructure:"html"`
	// Processed enables processed result caching.
	Processed bool `mapstructure:"processed"`
	// Backend picks the persistent store: "fs", "sqlite" or "postgres".
	Backend string `mapstructure:"backend"`
	// Dir overrides the filesystem cache location.
	Dir string `mapstructure:"dir"`
	// DSN is the database connection string for sql backends.
	DSN string `mapstructure:"dsn"`
}

// SetDefaults registers production-safe defaults on the given viper
// instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "goscrape",
		"environment": "production",
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"encoding":     "json",
		"output_paths": []string{"stdout"},
	})

	v.SetDefault("scraper", map[string]any{
		"user_agent":      DefaultUserAgent,
		"request_timeout": DefaultTimeout.String(),
		"max_redirects":   10,
		"max_retries":     DefaultRetries,
		"retry_delay":     DefaultRetryDelay.String(),
		"concurrency":     1,
		"max_inflight":    DefaultMaxInflight,
	})

	v.SetDefault("cache", map[string]any{
		"html":      true,
		"processed": true,
		"backend":   "fs",
	})
}

// Load unmarshals the configuration from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
