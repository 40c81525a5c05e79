package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/garyellow/ptc-frontdesk/internal/r2client"
)

// Fetcher reads archived objects back. *r2client.Client satisfies it.
type Fetcher interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	HeadObject(ctx context.Context, key string) (string, error)
}

// ErrInvalidKey is returned for keys outside the archive layout.
var ErrInvalidKey = errors.New("archive: invalid key")

var (
	keyPattern = regexp.MustCompile(`^archive/interactions/\d{8}-[0-9A-Za-z-]+\.jsonl\.zst$`)
	dayPattern = regexp.MustCompile(`^\d{8}$`)
)

// Fetch streams the decompressed archive at key to w. A missing object
// returns r2client.ErrNotFound.
func Fetch(ctx context.Context, f Fetcher, key string, w io.Writer) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	body, _, err := f.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("archive: download %s: %w", key, err)
	}
	defer func() { _ = body.Close() }()

	return Decompress(body, w)
}

// Claimed reports whether day (YYYYMMDD) has already been archived.
func Claimed(ctx context.Context, f Fetcher, day string) (bool, error) {
	if !dayPattern.MatchString(day) {
		return false, ErrInvalidKey
	}
	_, err := f.HeadObject(ctx, ClaimPrefix+day)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, r2client.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("archive: head claim %s: %w", day, err)
	}
}
