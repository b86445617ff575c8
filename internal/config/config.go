// Package config loads service configuration from environment variables.
// There is no file or secrets-manager mode: every setting is env-first,
// with defaults and clamping applied directly in Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration.
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// Postgres connection string for the catalog/basket pool.
	DatabaseURL string

	// OpenAI API key for query embeddings. Empty disables vector search;
	// the server still serves lexical-only results.
	OpenAIAPIKey string

	// search_products_v2 rollout controls.
	V2Enabled          bool
	V2ShadowSampleRate float64

	// Cache sizing.
	SearchCacheSize     int
	SearchCacheTTL      time.Duration
	EmbedQueryCacheSize int
	EmbedQueryCacheTTL  time.Duration
}

// Load reads configuration from environment variables, applying defaults
// and clamping to every numeric setting, and validates the required
// fields.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		V2Enabled:          envBoolOrDefault("MCP_V2_ENABLED", true),
		V2ShadowSampleRate: clampRate(envFloatOrDefault("MCP_V2_SHADOW_SAMPLE_RATE", 0)),

		SearchCacheSize:     envIntOrDefault("MCP_SEARCH_CACHE_SIZE", 2000),
		SearchCacheTTL:      envSecondsOrDefault("MCP_SEARCH_CACHE_TTL_SEC", 45),
		EmbedQueryCacheSize: envIntOrDefault("MCP_EMBED_QUERY_CACHE_SIZE", 5000),
		EmbedQueryCacheTTL:  envSecondsOrDefault("MCP_EMBED_QUERY_CACHE_TTL_SEC", 900),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration fields are present
// and numeric settings are in sane ranges.
func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q: must be debug, info, warn, or error", c.LogLevel)
	}

	if c.V2ShadowSampleRate < 0 || c.V2ShadowSampleRate > 1 {
		return fmt.Errorf("MCP_V2_SHADOW_SAMPLE_RATE must be between 0 and 1, got %v", c.V2ShadowSampleRate)
	}

	return nil
}

// envOrDefault returns the environment variable value or the default if
// not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func envIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func envFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func envSecondsOrDefault(key string, defaultSeconds int) time.Duration {
	seconds := envIntOrDefault(key, defaultSeconds)
	return time.Duration(seconds) * time.Second
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
