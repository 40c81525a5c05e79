// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and validates them before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Stats backends
const (
	StatsBackendFile   = "file"
	StatsBackendSQLite = "sqlite"
	StatsBackendMemory = "memory"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	Environment     string

	// Data Configuration
	DataDir          string // Directory for stats.json, interactions.jsonl or stats.db
	StatsBackend     string // "file", "sqlite" or "memory"
	LogMaxInputChars int    // Rune cap for the redacted input stored in the interaction log
	KnowledgeFile    string // Optional YAML override of the embedded knowledge base

	// Input Limits
	MaxInputLength int // Messages longer than this (in runes) are rejected

	// Admin view (?admin=<key>); disabled when empty
	AdminKey string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// LINE Transport (enabled when both are set)
	LineChannelSecret string
	LineChannelToken  string

	// Error tracking and remote logs
	SentryToken      string
	SentryHost       string
	BetterStackToken string

	Session SessionConfig
	R2      R2Config
}

// SessionConfig holds session memory and rate limit settings
type SessionConfig struct {
	Backend         string        // "memory" or "redis"
	TTL             time.Duration // Idle expiry (default: 24h)
	CleanupInterval time.Duration // MemoryStore sweep interval (default: 10m)
	RedisURL        string

	// Per-session token bucket
	RateBurst        float64 // Maximum burst tokens (default: 20)
	RateRefillPerSec float64 // Tokens refilled per second (default: 0.5)
}

// R2Config holds the object storage settings for the interaction log archive.
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	ArchiveHour     int // Local hour (Europe/Berlin) of the daily archive run
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, 30*time.Second),
		Environment:     getEnv(EnvEnvironment, "production"),

		DataDir:          getEnv(EnvDataDir, getDefaultDataDir()),
		StatsBackend:     getEnv(EnvStatsBackend, StatsBackendFile),
		LogMaxInputChars: getIntEnv(EnvLogMaxInputChars, 500),
		KnowledgeFile:    getEnv(EnvKnowledgeFile, ""),

		MaxInputLength: getIntEnv(EnvMaxInputLength, 2000),

		AdminKey: getEnv(EnvAdminKey, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),

		SentryToken:      getEnv(EnvSentryToken, ""),
		SentryHost:       getEnv(EnvSentryHost, ""),
		BetterStackToken: getEnv(EnvBetterStackToken, ""),

		Session: SessionConfig{
			Backend:          getEnv(EnvSessionBackend, SessionBackendMemory),
			TTL:              getDurationEnv(EnvSessionTTL, 24*time.Hour),
			CleanupInterval:  getDurationEnv(EnvSessionCleanupInterval, 10*time.Minute),
			RedisURL:         getEnv(EnvRedisURL, ""),
			RateBurst:        getFloatEnv(EnvSessionRateBurst, 20),
			RateRefillPerSec: getFloatEnv(EnvSessionRateRefillPerSec, 0.5),
		},

		R2: R2Config{
			Endpoint:        getEnv(EnvR2Endpoint, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			Bucket:          getEnv(EnvR2Bucket, ""),
			ArchiveHour:     getIntEnv(EnvArchiveHour, 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration values are consistent
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if !slices.Contains([]string{StatsBackendFile, StatsBackendSQLite, StatsBackendMemory}, c.StatsBackend) {
		errs = append(errs, fmt.Errorf("STATS_BACKEND must be file, sqlite or memory, got %q", c.StatsBackend))
	}
	if c.StatsBackend != StatsBackendMemory && c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required for persistent stats"))
	}
	if c.LogMaxInputChars <= 0 {
		errs = append(errs, fmt.Errorf("LOG_MAX_INPUT_CHARS must be positive, got %d", c.LogMaxInputChars))
	}
	if c.MaxInputLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_INPUT_LENGTH must be positive, got %d", c.MaxInputLength))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}
	if (c.LineChannelSecret == "") != (c.LineChannelToken == "") {
		errs = append(errs, errors.New("LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN must be set together"))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, errors.New("SENTRY_HOST is required when SENTRY_TOKEN is set"))
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session config: %w", err))
	}
	if err := c.R2.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("r2 config: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks session and rate limit settings
func (s SessionConfig) Validate() error {
	var errs []error

	switch s.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if s.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when SESSION_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", s.Backend))
	}
	if s.TTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %v", s.TTL))
	}
	if s.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive, got %v", s.CleanupInterval))
	}
	if s.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_RATE_BURST must be positive, got %v", s.RateBurst))
	}
	if s.RateRefillPerSec <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_RATE_REFILL_PER_SEC must be positive, got %v", s.RateRefillPerSec))
	}

	return errors.Join(errs...)
}

// Validate checks that R2 is either fully configured or not at all.
func (r R2Config) Validate() error {
	var errs []error

	set := 0
	for _, v := range []string{r.Endpoint, r.AccessKeyID, r.SecretAccessKey, r.Bucket} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 4 {
		errs = append(errs, errors.New("R2_ENDPOINT, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET must be set together"))
	}
	if r.ArchiveHour < 0 || r.ArchiveHour > 23 {
		errs = append(errs, fmt.Errorf("ARCHIVE_HOUR must be between 0 and 23, got %d", r.ArchiveHour))
	}

	return errors.Join(errs...)
}

// Enabled reports whether the archive upload is configured.
func (r R2Config) Enabled() bool {
	return r.Endpoint != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

// LineEnabled reports whether the LINE webhook should be mounted.
func (c *Config) LineEnabled() bool {
	return c.LineChannelSecret != "" && c.LineChannelToken != ""
}

// AdminEnabled reports whether the admin view is reachable.
func (c *Config) AdminEnabled() bool {
	return c.AdminKey != ""
}

// SQLitePath returns the full path to the SQLite stats database
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "stats.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
