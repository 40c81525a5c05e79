package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/ptc-frontdesk/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "session")
	Name string

	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// How often to drop idle buckets; zero disables the background sweep
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// KeyedLimiter keeps one token bucket per key (session ID, LINE source ID).
// Buckets that have refilled completely are dropped by the cleanup loop.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*Limiter
	config  KeyedConfig
	now     func() time.Time
	stopCh  chan struct{}
	stop    sync.Once
}

// NewKeyedLimiter creates a new per-key rate limiter.
//
//	limiter := NewKeyedLimiter(KeyedConfig{
//	    Name:          "session",
//	    Burst:         20,
//	    RefillRate:    0.5,
//	    CleanupPeriod: 5 * time.Minute,
//	})
//	defer limiter.Stop()
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[string]*Limiter),
		config:  cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}

	return kl
}

// Allow reports whether a request for key may proceed and consumes a token.
// The empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	if kl.entry(key).Allow() {
		return true
	}

	if kl.config.Metrics != nil {
		kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
	}
	return false
}

func (kl *KeyedLimiter) entry(key string) *Limiter {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok = kl.entries[key]; ok {
		return l
	}
	l = newWithClock(kl.config.Burst, kl.config.RefillRate, kl.now)
	kl.entries[key] = l
	return l
}

// Forget drops the bucket for key, e.g. after a session reset.
func (kl *KeyedLimiter) Forget(key string) {
	kl.mu.Lock()
	delete(kl.entries, key)
	kl.mu.Unlock()
}

// Available returns the tokens left for key; Burst when the key is unknown.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()

	if !ok {
		return kl.config.Burst
	}
	return l.Available()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// Sweep removes idle buckets and returns how many were removed.
func (kl *KeyedLimiter) Sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	removed := 0
	for key, l := range kl.entries {
		if l.IsFull() {
			delete(kl.entries, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Sweep()
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stop.Do(func() { close(kl.stopCh) })
}
