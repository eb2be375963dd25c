package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AnalysisStore is the backing map of Cached.
type AnalysisStore interface {
	Get(key string) (Analysis, bool)
	Set(key string, a Analysis, ttl time.Duration)
}

// Cached remembers analyses by photo content so repeated searches with the
// same photo do not pay for detection twice. Failures are not cached.
type Cached struct {
	next  Detector
	store AnalysisStore
	ttl   time.Duration
}

func NewCached(next Detector, store AnalysisStore, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, ttl: ttl}
}

func (c *Cached) Detect(ctx context.Context, in Input) (Analysis, error) {
	sum := sha256.Sum256(in.Image.Bytes)
	key := hex.EncodeToString(sum[:])
	if a, ok := c.store.Get(key); ok {
		return a, nil
	}
	a, err := c.next.Detect(ctx, in)
	if err != nil {
		return Analysis{}, err
	}
	c.store.Set(key, a, c.ttl)
	return a, nil
}
