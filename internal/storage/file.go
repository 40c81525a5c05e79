package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/garyellow/ptc-frontdesk/internal/errors"
)

// File names inside the data directory.
const (
	StatsFileName        = "stats.json"
	InteractionsFileName = "interactions.jsonl"
)

// FileRecorder persists counters as one JSON document, rewritten through a
// temp file and an atomic rename on every turn, and appends the log as JSON
// lines. One mutex serializes all writers in the process.
type FileRecorder struct {
	mu        sync.Mutex
	statsPath string
	logPath   string
	counters  Counters
}

// NewFileRecorder opens (or creates) the files in dir and loads existing
// counters.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	f := &FileRecorder{
		statsPath: filepath.Join(dir, StatsFileName),
		logPath:   filepath.Join(dir, InteractionsFileName),
		counters:  NewCounters(),
	}

	data, err := os.ReadFile(f.statsPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", StatsFileName, err)
	default:
		if err := json.Unmarshal(data, &f.counters); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", StatsFileName, err)
		}
		f.counters = f.counters.Clone()
	}

	return f, nil
}

// StatsPath returns the counters file path.
func (f *FileRecorder) StatsPath() string { return f.statsPath }

// LogPath returns the interaction log path.
func (f *FileRecorder) LogPath() string { return f.logPath }

// RecordTurn implements Recorder. In-memory counters only advance when the
// counters file was replaced successfully.
func (f *FileRecorder) RecordTurn(_ context.Context, in Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.counters.Clone()
	next.apply(in)

	var errs []error
	if err := writeJSONAtomic(f.statsPath, next); err != nil {
		errs = append(errs, err)
	} else {
		f.counters = next
	}
	if err := appendJSONLine(f.logPath, in); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return persistErr("record_turn", errors.Join(errs...))
	}
	return nil
}

// Counters implements Recorder.
func (f *FileRecorder) Counters(context.Context) (Counters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters.Clone(), nil
}

// Interactions implements Recorder. Lines that fail to decode are skipped.
func (f *FileRecorder) Interactions(_ context.Context, limit int) ([]Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.logPath)
	if os.IsNotExist(err) {
		return []Interaction{}, nil
	}
	if err != nil {
		return nil, persistErr("read_log", err)
	}
	defer func() { _ = file.Close() }()

	var log []Interaction
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var in Interaction
		if json.Unmarshal(scanner.Bytes(), &in) == nil {
			log = append(log, in)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, persistErr("read_log", err)
	}
	return newest(log, limit), nil
}

// ExportLog implements Recorder by copying the raw file.
func (f *FileRecorder) ExportLog(_ context.Context, w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return persistErr("export_log", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(w, file); err != nil {
		return persistErr("export_log", err)
	}
	return nil
}

// Close implements Recorder.
func (f *FileRecorder) Close() error { return nil }

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func appendJSONLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode log line: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		_ = file.Close()
		return fmt.Errorf("append log: %w", err)
	}
	return file.Close()
}
