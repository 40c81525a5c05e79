package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestNew(t *testing.T) {
	t.Parallel()
	l := New(10, 5)
	if l.maxTokens != 10 {
		t.Errorf("maxTokens = %v, want 10", l.maxTokens)
	}
	if l.refillRate != 5 {
		t.Errorf("refillRate = %v, want 5", l.refillRate)
	}
	if l.tokens != 10 {
		t.Errorf("initial tokens = %v, want 10", l.tokens)
	}
}

func TestAllow(t *testing.T) {
	t.Parallel()
	t.Run("allows burst then denies", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := newWithClock(3, 1, clock.Now)
		for i := 0; i < 3; i++ {
			if !l.Allow() {
				t.Errorf("Allow() = false on attempt %d, want true", i+1)
			}
		}
		if l.Allow() {
			t.Error("Allow() = true after burst, want false")
		}
	})

	t.Run("refills over time", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := newWithClock(1, 0.5, clock.Now)
		l.Allow()

		clock.Advance(time.Second)
		if l.Allow() {
			t.Error("Allow() = true after half a token, want false")
		}
		clock.Advance(time.Second)
		if !l.Allow() {
			t.Error("Allow() = false after refill, want true")
		}
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := newWithClock(2, 10, clock.Now)
		clock.Advance(time.Hour)
		if got := l.Available(); got != 2 {
			t.Errorf("Available() = %v, want 2", got)
		}
	})
}

func TestIsFullAndReset(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := newWithClock(2, 1, clock.Now)
	if !l.IsFull() {
		t.Error("new limiter should be full")
	}
	l.Allow()
	if l.IsFull() {
		t.Error("IsFull() = true after consuming")
	}
	l.Reset()
	if !l.IsFull() {
		t.Error("IsFull() = false after Reset")
	}
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("returns immediately with tokens", func(t *testing.T) {
		t.Parallel()
		l := New(1, 1)
		if err := l.Wait(context.Background()); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	})

	t.Run("waits for refill", func(t *testing.T) {
		t.Parallel()
		l := New(1, 50) // one token every 20ms
		l.Allow()
		start := time.Now()
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Wait() took %v", elapsed)
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		t.Parallel()
		l := New(1, 0)
		l.Allow()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); err != context.DeadlineExceeded {
			t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
		}
	})
}

func TestConcurrentAllow(t *testing.T) {
	t.Parallel()
	l := New(100, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Go(func() {
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want 100", allowed)
	}
}
