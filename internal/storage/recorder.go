// Package storage records aggregate intent counters and the redacted
// interaction log. Writers are serialized; a failed write never changes
// the reply that was already composed.
package storage

import (
	"context"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/garyellow/ptc-frontdesk/internal/errors"
)

// FallbackIntent is counted separately from the topic intents.
const FallbackIntent = "fallback"

// Interaction is one line of the interaction log.
type Interaction struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	Intent    string    `json:"intent"`
	Goal      string    `json:"goal,omitempty"`
	Input     string    `json:"input"` // redacted and length-capped
}

// Counters are the process-wide aggregates.
type Counters struct {
	Intents   map[string]int64 `json:"intents"`
	Fallback  int64            `json:"fallback"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewCounters returns zeroed counters.
func NewCounters() Counters {
	return Counters{Intents: make(map[string]int64)}
}

func (c *Counters) apply(in Interaction) {
	if c.Intents == nil {
		c.Intents = make(map[string]int64)
	}
	if in.Intent == FallbackIntent {
		c.Fallback++
	} else {
		c.Intents[in.Intent]++
	}
	c.UpdatedAt = in.Timestamp
}

// Clone returns a deep copy.
func (c Counters) Clone() Counters {
	c.Intents = maps.Clone(c.Intents)
	if c.Intents == nil {
		c.Intents = make(map[string]int64)
	}
	return c
}

// Total is the number of recorded turns.
func (c Counters) Total() int64 {
	total := c.Fallback
	for _, n := range c.Intents {
		total += n
	}
	return total
}

// Recorder persists counters and the interaction log.
type Recorder interface {
	// RecordTurn bumps the intent (or fallback) counter, sets the
	// last-updated time and appends in to the log.
	RecordTurn(ctx context.Context, in Interaction) error
	Counters(ctx context.Context) (Counters, error)
	// Interactions returns up to limit records, newest first.
	Interactions(ctx context.Context, limit int) ([]Interaction, error)
	// ExportLog writes the whole log as JSON lines, oldest first.
	ExportLog(ctx context.Context, w io.Writer) error
	Close() error
}

// persistErr marks err as a persistence failure of op.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.NewWrapper("storage", op).Wrap(fmt.Errorf("%w: %w", errors.ErrPersistence, err), "")
}

// newest returns the last limit records of log in reverse order.
func newest(log []Interaction, limit int) []Interaction {
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]Interaction, 0, limit)
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out
}
