// Package config provides configuration management for the API gateway.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration so the process starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info); "debug" also permits raw
//     failure text in 500 response bodies
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - RATE_LIMIT: Limit as "<count>/<unit>", unit one of second, minute,
//     hour, day (default: 100/minute). An unparseable value falls back to
//     the default instead of failing startup.
//   - EXEMPT_PATHS: Comma-separated path prefixes that bypass rate limiting
//     and are always classified fast-path
//     (default: /health,/metrics,/api/auth/,/api/public/)
//
// Redis Configuration (distributed rate-limit tier; leave REDIS_ADDRESS
// empty to run on the in-process tier only):
//   - REDIS_ADDRESS: Redis server address (default: empty, tier disabled)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// TLS:
//   - TLS_CERT / TLS_KEY: Certificate and key paths; both empty means
//     plain HTTP
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values for the API gateway. All string
// fields correspond to environment variables that can be set to override
// the default values.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Rate limiting configuration
	RateLimitEnabled bool   // Whether rate limiting is enabled
	RateLimit        string // Limit in "<count>/<unit>" form
	ExemptPaths      string // Comma-separated exempt path prefixes

	// Redis configuration for the distributed rate-limit tier
	RedisAddress  string // Redis server address (host:port); empty disables the tier
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// TLS configuration
	TLSCert string // Path to TLS certificate
	TLSKey  string // Path to TLS key
}

// DefaultExemptPaths is the built-in exempt prefix list. Health and
// metrics endpoints must stay reachable even from rate-limited clients.
const DefaultExemptPaths = "/health,/metrics,/api/auth/,/api/public/"

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding
// default value is used.
//
// This function does not validate the configuration - call Validate() on
// the returned Config before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimit:        getEnv("RATE_LIMIT", "100/minute"),
		ExemptPaths:      getEnv("EXEMPT_PATHS", DefaultExemptPaths),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		TLSCert: getEnv("TLS_CERT", ""),
		TLSKey:  getEnv("TLS_KEY", ""),
	}
}

// ExemptPathList returns the exempt path prefixes as a slice, with empty
// entries and surrounding whitespace removed.
func (c *Config) ExemptPathList() []string {
	parts := strings.Split(c.ExemptPaths, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Validate performs validation on the configuration to ensure all values
// are usable. Note that RATE_LIMIT is deliberately not validated here: an
// unparseable limit degrades to the default at limiter construction time
// rather than preventing startup.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS_CERT and TLS_KEY must be provided together")
	}

	return nil
}

// getEnv retrieves an environment variable value or returns a default
// value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a
// default value when unset or unparseable.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
