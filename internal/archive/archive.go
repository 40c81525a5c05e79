// Package archive ships the interaction log to object storage as a
// zstd-compressed JSON lines file, at most once per local day.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/garyellow/ptc-frontdesk/internal/logger"
	"github.com/garyellow/ptc-frontdesk/internal/metrics"
)

// KeyPrefix is where archived logs are written.
const KeyPrefix = "archive/interactions/"

// ContentType of uploaded archives.
const ContentType = "application/zstd"

// Store is the object storage used by the archiver. *r2client.Client
// satisfies it.
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
}

// Source exports the interaction log. storage.Recorder satisfies it.
type Source interface {
	ExportLog(ctx context.Context, w io.Writer) error
}

// Config holds the collaborators of an Archiver.
type Config struct {
	Store    Store
	Source   Source
	Logger   *logger.Logger
	Metrics  *metrics.Metrics // optional
	Location *time.Location   // day boundaries; defaults to Europe/Berlin
}

// Result describes one run.
type Result struct {
	Key     string // object key; empty when skipped
	Day     string // YYYYMMDD in the archiver's location
	Bytes   int    // compressed size
	Skipped bool   // another instance already archived this day
}

// Archiver exports, compresses and uploads the interaction log.
type Archiver struct {
	store   Store
	source  Source
	logger  *logger.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
	newID   func() string
}

// New creates an Archiver.
func New(cfg Config) *Archiver {
	loc := cfg.Location
	if loc == nil {
		loc = Berlin()
	}
	return &Archiver{
		store:   cfg.Store,
		source:  cfg.Source,
		logger:  cfg.Logger.WithModule("archive"),
		metrics: cfg.Metrics,
		loc:     loc,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run archives the current log unless this day was already claimed.
func (a *Archiver) Run(ctx context.Context) (Result, error) {
	now := a.now().In(a.loc)
	res := Result{Day: now.Format("20060102")}

	c := newClaim(a.store, res.Day, a.newID())
	ok, err := c.acquire(ctx, now)
	if err != nil {
		a.record("error")
		return res, err
	}
	if !ok {
		res.Skipped = true
		a.record("skipped")
		a.logger.WithField("day", res.Day).Info("Archive already written today; skipping")
		return res, nil
	}

	key, size, err := a.upload(ctx, res.Day)
	if err != nil {
		// free the day so the next tick can retry
		if relErr := c.release(ctx); relErr != nil {
			a.logger.WithError(relErr).Warn("Failed to release archive claim")
		}
		a.record("error")
		return res, err
	}

	res.Key, res.Bytes = key, size
	a.record("success")
	a.logger.WithField("key", key).
		WithField("bytes", size).
		Info("Interaction log archived")
	return res, nil
}

func (a *Archiver) upload(ctx context.Context, day string) (string, int, error) {
	var buf bytes.Buffer
	if err := Compress(ctx, a.source, &buf); err != nil {
		return "", 0, err
	}

	key := fmt.Sprintf("%s%s-%s.jsonl.zst", KeyPrefix, day, a.newID())
	if _, err := a.store.Upload(ctx, key, bytes.NewReader(buf.Bytes()), ContentType); err != nil {
		return "", 0, fmt.Errorf("archive: upload: %w", err)
	}
	return key, buf.Len(), nil
}

func (a *Archiver) record(status string) {
	if a.metrics != nil {
		a.metrics.RecordArchiveRun(status)
	}
}

// Compress writes the zstd-compressed export of src to w.
func Compress(ctx context.Context, src Source, w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("archive: create encoder: %w", err)
	}
	if err := src.ExportLog(ctx, enc); err != nil {
		_ = enc.Close()
		return fmt.Errorf("archive: export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("archive: close encoder: %w", err)
	}
	return nil
}

// Decompress copies the decompressed content of r to w.
func Decompress(r io.Reader, w io.Writer) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("archive: create decoder: %w", err)
	}
	defer dec.Close()

	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("archive: decompress: %w", err)
	}
	return nil
}
