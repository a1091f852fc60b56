package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goscrape/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "goscrape", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Environment)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Encoding)

	assert.Equal(t, config.DefaultUserAgent, cfg.Scraper.UserAgent)
	assert.Equal(t, config.DefaultTimeout, cfg.Scraper.RequestTimeout)
	assert.Equal(t, config.DefaultRetries, cfg.Scraper.MaxRetries)
	assert.Equal(t, config.DefaultRetryDelay, cfg.Scraper.RetryDelay)
	assert.Equal(t, 1, cfg.Scraper.Concurrency)
	assert.Equal(t, int64(config.DefaultMaxInflight), cfg.Scraper.MaxInflight)

	assert.True(t, cfg.Cache.HTML)
	assert.True(t, cfg.Cache.Processed)
	assert.Equal(t, "fs", cfg.Cache.Backend)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	v.Set("scraper.user_agent", "custom/9.9")
	v.Set("scraper.request_timeout", "5s")
	v.Set("scraper.concurrency", 16)
	v.Set("cache.backend", "sqlite")
	v.Set("cache.dsn", "cache.db")
	v.Set("cache.html", false)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "custom/9.9", cfg.Scraper.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.Scraper.RequestTimeout)
	assert.Equal(t, 16, cfg.Scraper.Concurrency)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "cache.db", cfg.Cache.DSN)
	assert.False(t, cfg.Cache.HTML)
	assert.True(t, cfg.Cache.Processed)
}

func TestLoadMalformed(t *testing.T) {
	v := viper.New()
	v.Set("scraper.request_timeout", "not-a-duration")

	_, err := config.Load(v)
	assert.Error(t, err)
}
