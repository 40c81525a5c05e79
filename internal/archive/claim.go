package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClaimPrefix holds one marker object per archived day.
const ClaimPrefix = "archive/claims/"

// claimInfo is the body of a day marker.
type claimInfo struct {
	Owner     string    `json:"owner"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// claim reserves a day with a conditional create so that only one
// instance uploads, even when several replicas share a bucket.
type claim struct {
	store Store
	key   string
	owner string
}

func newClaim(store Store, day, owner string) *claim {
	return &claim{store: store, key: ClaimPrefix + day, owner: owner}
}

// acquire returns false when another run already holds the day.
func (c *claim) acquire(ctx context.Context, now time.Time) (bool, error) {
	data, err := json.Marshal(claimInfo{Owner: c.owner, ClaimedAt: now.UTC()})
	if err != nil {
		return false, fmt.Errorf("archive: marshal claim: %w", err)
	}

	ok, err := c.store.PutObjectIfNotExists(ctx, c.key, bytes.NewReader(data), "application/json")
	if err != nil {
		return false, fmt.Errorf("archive: claim %s: %w", c.key, err)
	}
	return ok, nil
}

func (c *claim) release(ctx context.Context) error {
	if err := c.store.DeleteObject(ctx, c.key); err != nil {
		return fmt.Errorf("archive: release %s: %w", c.key, err)
	}
	return nil
}
