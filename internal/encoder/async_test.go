package encoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubEncoder struct {
	vec   Vector
	err   error
	delay time.Duration
	calls int
}

func (s *stubEncoder) Embed(ctx context.Context, _ Image) (Vector, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.vec, s.err
}

func (s *stubEncoder) Dimension() int { return len(s.vec) }

func TestFutureAwait(t *testing.T) {
	enc := &stubEncoder{vec: Vector{1, 0}}
	vec, err := EmbedAsync(context.Background(), enc, RawBytes("x")).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Vector{1, 0}, vec)
}

func TestFutureAwaitPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := EmbedAsync(context.Background(), &stubEncoder{err: boom}, RawBytes("x")).Await(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestFutureAwaitTimeout(t *testing.T) {
	enc := &stubEncoder{vec: Vector{1}, delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := EmbedAsync(context.Background(), enc, RawBytes("x")).Await(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFutureRecoversPanic(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) {
		panic("encoder crashed")
	})
	_, err := f.Await(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestThrottled(t *testing.T) {
	inner := &stubEncoder{vec: Vector{1}}
	assert.Same(t, inner, NewThrottled(inner, nil))

	enc := NewThrottled(inner, rate.NewLimiter(rate.Inf, 1))
	_, err := enc.Embed(context.Background(), RawBytes("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	_, ok := AsTextEncoder(enc)
	assert.False(t, ok)

	text := NewThrottled(NewHTTPEncoder("http://127.0.0.1:0"), rate.NewLimiter(rate.Inf, 1))
	_, ok = AsTextEncoder(text)
	assert.True(t, ok)
}

func TestThrottledOverBudget(t *testing.T) {
	inner := &stubEncoder{vec: Vector{1}}
	enc := NewThrottled(inner, rate.NewLimiter(rate.Every(time.Hour), 1))

	_, err := enc.Embed(context.Background(), RawBytes("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = enc.Embed(ctx, RawBytes("x"))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, inner.calls)
}
