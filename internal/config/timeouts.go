package config

import "time"

// HTTP server timeouts. Chat replies are computed synchronously in well
// under a millisecond, so these only bound slow clients.
const (
	HTTPRead  = 10 * time.Second
	HTTPWrite = 15 * time.Second
	HTTPIdle  = 120 * time.Second
)

// WebhookProcessing bounds the handling of one LINE event, including the
// reply API call.
const WebhookProcessing = 20 * time.Second

// Background job intervals
const (
	// RateLimiterCleanupInterval is how often idle per-session limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// ArchiveUpload bounds one archive export + upload.
	ArchiveUpload = 2 * time.Minute
)

// Storage
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second

	// RedisOperation bounds a single session store round trip.
	RedisOperation = 3 * time.Second
)

// ReadinessCheck bounds the store probes behind /readyz.
const ReadinessCheck = 3 * time.Second
