package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/garyellow/ptc-frontdesk/internal/errors"
)

const updatedAtKey = "updated_at"

// SQLiteRecorder stores counters and the log in a SQLite database. Each
// turn is one transaction.
type SQLiteRecorder struct {
	conn *sql.DB
	path string
	mu   sync.Mutex // serializes writers; SQLite allows one at a time anyway
}

// NewSQLiteRecorder opens the database at dbPath and initializes the schema.
func NewSQLiteRecorder(ctx context.Context, dbPath string, busyTimeout time.Duration) (*SQLiteRecorder, error) {
	// Ensure directory exists (skip for in-memory database)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRecorder{conn: conn, path: dbPath}, nil
}

// Path returns the database file path
func (s *SQLiteRecorder) Path() string {
	return s.path
}

// RecordTurn implements Recorder.
func (s *SQLiteRecorder) RecordTurn(ctx context.Context, in Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("record_turn", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO intent_counters (intent, count) VALUES (?, 1)
		 ON CONFLICT(intent) DO UPDATE SET count = count + 1`, in.Intent); err != nil {
		return persistErr("record_turn", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stats_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		updatedAtKey, in.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return persistErr("record_turn", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interactions (ts, session_id, intent, goal, input) VALUES (?, ?, ?, ?, ?)`,
		in.Timestamp.UTC().Format(time.RFC3339Nano), in.SessionID, in.Intent, in.Goal, in.Input); err != nil {
		return persistErr("record_turn", err)
	}

	return persistErr("record_turn", tx.Commit())
}

// Counters implements Recorder.
func (s *SQLiteRecorder) Counters(ctx context.Context) (Counters, error) {
	c := NewCounters()

	rows, err := s.conn.QueryContext(ctx, `SELECT intent, count FROM intent_counters`)
	if err != nil {
		return c, persistErr("read_counters", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var intent string
		var n int64
		if err := rows.Scan(&intent, &n); err != nil {
			return c, persistErr("read_counters", err)
		}
		if intent == FallbackIntent {
			c.Fallback = n
		} else {
			c.Intents[intent] = n
		}
	}
	if err := rows.Err(); err != nil {
		return c, persistErr("read_counters", err)
	}

	var updated string
	err = s.conn.QueryRowContext(ctx, `SELECT value FROM stats_meta WHERE key = ?`, updatedAtKey).Scan(&updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return c, persistErr("read_counters", err)
	default:
		if t, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
			c.UpdatedAt = t
		}
	}

	return c, nil
}

// Interactions implements Recorder.
func (s *SQLiteRecorder) Interactions(ctx context.Context, limit int) ([]Interaction, error) {
	query := `SELECT ts, session_id, intent, goal, input FROM interactions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	out := []Interaction{}
	err := s.scanInteractions(ctx, query, args, func(in Interaction) error {
		out = append(out, in)
		return nil
	})
	if err != nil {
		return nil, persistErr("read_log", err)
	}
	return out, nil
}

// ExportLog implements Recorder.
func (s *SQLiteRecorder) ExportLog(ctx context.Context, w io.Writer) error {
	enc := json.NewEncoder(w)
	err := s.scanInteractions(ctx,
		`SELECT ts, session_id, intent, goal, input FROM interactions ORDER BY id ASC`, nil,
		func(in Interaction) error { return enc.Encode(in) })
	return persistErr("export_log", err)
}

func (s *SQLiteRecorder) scanInteractions(ctx context.Context, query string, args []any, fn func(Interaction) error) error {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var in Interaction
		var ts string
		if err := rows.Scan(&ts, &in.SessionID, &in.Intent, &in.Goal, &in.Input); err != nil {
			return err
		}
		in.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if err := fn(in); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database connection
func (s *SQLiteRecorder) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
