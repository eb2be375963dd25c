package encoder

import (
	"context"
	"errors"
	"fmt"
)

// Future is the result of a call started with Go.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on its own goroutine. Panics inside fn are turned into errors
// so a misbehaving encoder cannot take the process down.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: panic: %v", ErrUnavailable, r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the call finishes or ctx is done. A context timeout is
// reported as ErrUnavailable so callers treat it as retryable.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

// EmbedAsync starts enc.Embed behind a Future.
func EmbedAsync(ctx context.Context, enc Encoder, img Image) *Future[Vector] {
	return Go(ctx, func(ctx context.Context) (Vector, error) {
		return enc.Embed(ctx, img)
	})
}

// EmbedTextAsync starts a text embedding behind a Future.
func EmbedTextAsync(ctx context.Context, enc TextEncoder, text string) *Future[Vector] {
	return Go(ctx, func(ctx context.Context) (Vector, error) {
		return enc.EmbedText(ctx, text)
	})
}

// classifyCtxErr maps context expiry onto ErrUnavailable and leaves other
// errors untouched.
func classifyCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
