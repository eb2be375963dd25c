package encoder

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limits the call rate of an Encoder.
type Throttled struct {
	Encoder
	limiter *rate.Limiter
}

// NewThrottled wraps enc; a nil limiter returns enc unchanged.
func NewThrottled(enc Encoder, limiter *rate.Limiter) Encoder {
	if limiter == nil {
		return enc
	}
	return &Throttled{Encoder: enc, limiter: limiter}
}

func (t *Throttled) Embed(ctx context.Context, img Image) (Vector, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return t.Encoder.Embed(ctx, img)
}

// EmbedText forwards to the wrapped encoder when it supports text.
func (t *Throttled) EmbedText(ctx context.Context, text string) (Vector, error) {
	te, ok := t.Encoder.(TextEncoder)
	if !ok {
		return nil, ErrTextUnsupported
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return te.EmbedText(ctx, text)
}
