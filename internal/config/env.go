package config

//nolint:gosec,revive // Environment variable keys are not credentials.
const (
	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvEnvironment     = "ENVIRONMENT"

	// Data
	EnvDataDir          = "DATA_DIR"
	EnvStatsBackend     = "STATS_BACKEND"
	EnvLogMaxInputChars = "LOG_MAX_INPUT_CHARS"
	EnvKnowledgeFile    = "KNOWLEDGE_FILE"

	// Sessions
	EnvSessionBackend         = "SESSION_BACKEND"
	EnvSessionTTL             = "SESSION_TTL"
	EnvSessionCleanupInterval = "SESSION_CLEANUP_INTERVAL"
	EnvRedisURL               = "REDIS_URL"

	// Input limits
	EnvMaxInputLength          = "MAX_INPUT_LENGTH"
	EnvSessionRateBurst        = "SESSION_RATE_BURST"
	EnvSessionRateRefillPerSec = "SESSION_RATE_REFILL_PER_SEC"

	// Admin & metrics auth
	EnvAdminKey        = "ADMIN_KEY"
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"

	// LINE transport
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"

	// R2 archive
	EnvR2Endpoint        = "R2_ENDPOINT"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2Bucket          = "R2_BUCKET"
	EnvArchiveHour       = "ARCHIVE_HOUR"

	// Error tracking & remote logs
	EnvSentryToken      = "SENTRY_TOKEN"
	EnvSentryHost       = "SENTRY_HOST"
	EnvBetterStackToken = "BETTERSTACK_TOKEN"
)
