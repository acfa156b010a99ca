package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, "100/minute", cfg.RateLimit)
	assert.Equal(t, DefaultExemptPaths, cfg.ExemptPaths)
	assert.Equal(t, "", cfg.RedisAddress)
	assert.Equal(t, "0", cfg.RedisDB)
	assert.Equal(t, "10", cfg.RedisPoolSize)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT", "10/second")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("EXEMPT_PATHS", "/health,/status")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "10/second", cfg.RateLimit)
	assert.False(t, cfg.RateLimitEnabled)
	assert.Equal(t, "redis:6379", cfg.RedisAddress)
	assert.Equal(t, []string{"/health", "/status"}, cfg.ExemptPathList())
}

func TestExemptPathList(t *testing.T) {
	cfg := &Config{ExemptPaths: " /health , ,/metrics,"}
	assert.Equal(t, []string{"/health", "/metrics"}, cfg.ExemptPathList())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Load()
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Port = "not-a-port"
		assert.Error(t, cfg.Validate())

		cfg.Port = "70000"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad redis db", func(t *testing.T) {
		cfg := valid()
		cfg.RedisAddress = "localhost:6379"
		cfg.RedisDB = "16"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad redis pool size", func(t *testing.T) {
		cfg := valid()
		cfg.RedisAddress = "localhost:6379"
		cfg.RedisPoolSize = "0"
		assert.Error(t, cfg.Validate())
	})

	t.Run("redis settings ignored without address", func(t *testing.T) {
		cfg := valid()
		cfg.RedisDB = "junk"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("tls cert without key", func(t *testing.T) {
		cfg := valid()
		cfg.TLSCert = "/tmp/cert.pem"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unparseable rate limit does not fail validation", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit = "garbage"
		assert.NoError(t, cfg.Validate())
	})
}
