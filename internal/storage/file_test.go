package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/garyellow/ptc-frontdesk/internal/errors"
)

func TestFileRecorder_PersistsAcrossRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	r, err := NewFileRecorder(dir)
	require.NoError(t, err)
	require.NoError(t, r.RecordTurn(ctx, turn(0, "info")))
	require.NoError(t, r.RecordTurn(ctx, turn(1, FallbackIntent)))

	data, err := os.ReadFile(filepath.Join(dir, StatsFileName))
	require.NoError(t, err)
	var onDisk Counters
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, int64(1), onDisk.Intents["info"])
	assert.Equal(t, int64(1), onDisk.Fallback)

	reopened, err := NewFileRecorder(dir)
	require.NoError(t, err)
	c, err := reopened.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Total())

	// no temp files left behind
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileRecorder_CorruptStats(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StatsFileName), []byte("{nope"), 0o600))

	_, err := NewFileRecorder(dir)
	assert.ErrorContains(t, err, "decode")
}

func TestFileRecorder_WriteFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	r, err := NewFileRecorder(dir)
	require.NoError(t, err)
	require.NoError(t, r.RecordTurn(ctx, turn(0, "pricing")))

	// a directory where the log file should be makes appends fail
	require.NoError(t, os.Remove(r.LogPath()))
	require.NoError(t, os.Mkdir(r.LogPath(), 0o755))

	err = r.RecordTurn(ctx, turn(1, "pricing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))
	assert.Equal(t, "storage:record_turn", apperrors.Operation(err))

	// the counters file itself was still replaced
	c, err := r.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Intents["pricing"])
}

func TestFileRecorder_EmptyLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, err := NewFileRecorder(t.TempDir())
	require.NoError(t, err)

	recent, err := r.Interactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	var buf bytes.Buffer
	require.NoError(t, r.ExportLog(ctx, &buf))
	assert.Zero(t, buf.Len())
}
