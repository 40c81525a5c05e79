package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/ptc-frontdesk/internal/r2client"
	"github.com/garyellow/ptc-frontdesk/internal/storage"
)

func (f *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "etag", nil
}

func (f *fakeStore) HeadObject(_ context.Context, key string) (string, error) {
	if f.headErr != nil {
		return "", f.headErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", r2client.ErrNotFound
	}
	return "etag", nil
}

func TestFetch_RoundTrip(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	a, _ := newTestArchiver(t, store, seededRecorder(t))
	ctx := context.Background()

	res, err := a.Run(ctx)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Fetch(ctx, store, res.Key, &out))

	var want bytes.Buffer
	require.NoError(t, seededRecorder(t).ExportLog(ctx, &want))
	assert.Equal(t, want.String(), out.String())
}

func TestFetch_InvalidKey(t *testing.T) {
	t.Parallel()
	store := newFakeStore()

	for _, key := range []string{"", "archive/claims/20260302", "../secret", "archive/interactions/x.jsonl.zst"} {
		err := Fetch(context.Background(), store, key, io.Discard)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestFetch_Missing(t *testing.T) {
	t.Parallel()
	err := Fetch(context.Background(), newFakeStore(), "archive/interactions/20260302-abc.jsonl.zst", io.Discard)
	assert.ErrorIs(t, err, r2client.ErrNotFound)
}

func TestClaimed(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	a, _ := newTestArchiver(t, store, storage.NewMemoryRecorder())
	ctx := context.Background()

	ok, err := Claimed(ctx, store, "20260302")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.Run(ctx)
	require.NoError(t, err)

	ok, err = Claimed(ctx, store, "20260302")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Claimed(ctx, store, "2026-03-02")
	assert.ErrorIs(t, err, ErrInvalidKey)

	store.headErr = fmt.Errorf("timeout")
	_, err = Claimed(ctx, store, "20260302")
	assert.Error(t, err)
}
