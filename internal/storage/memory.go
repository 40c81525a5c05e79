package storage

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"sync"
)

// MemoryRecorder keeps everything in process memory. It backs
// STATS_BACKEND=memory and tests.
type MemoryRecorder struct {
	mu       sync.Mutex
	counters Counters
	log      []Interaction
	failWith error // injected by tests
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counters: NewCounters()}
}

// RecordTurn implements Recorder.
func (m *MemoryRecorder) RecordTurn(_ context.Context, in Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return persistErr("record_turn", m.failWith)
	}
	m.counters.apply(in)
	m.log = append(m.log, in)
	return nil
}

// Counters implements Recorder.
func (m *MemoryRecorder) Counters(context.Context) (Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters.Clone(), nil
}

// Interactions implements Recorder.
func (m *MemoryRecorder) Interactions(_ context.Context, limit int) ([]Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newest(m.log, limit), nil
}

// ExportLog implements Recorder.
func (m *MemoryRecorder) ExportLog(_ context.Context, w io.Writer) error {
	m.mu.Lock()
	log := slices.Clone(m.log)
	m.mu.Unlock()

	enc := json.NewEncoder(w)
	for _, in := range log {
		if err := enc.Encode(in); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Recorder.
func (m *MemoryRecorder) Close() error { return nil }

// FailWith makes every subsequent RecordTurn fail with err (nil restores).
func (m *MemoryRecorder) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}
