// Package encoder defines the embedding contract used by the index and the
// search pipeline, plus the concrete encoders (remote HTTP service, local
// ONNX CLIP model).
//
// Every Encoder returns L2-normalised vectors, so the inner product of two
// vectors is their cosine similarity.
package encoder

import (
	"context"
	"errors"
	"math"
)

// Vector is an L2-normalised embedding. Treat it as immutable once returned.
type Vector []float32

// Encoder maps an image to a unit-length vector.
type Encoder interface {
	Embed(ctx context.Context, img Image) (Vector, error)

	// Dimension reports the output dimensionality, or 0 when it is only
	// known after the first call.
	Dimension() int
}

// TextEncoder is the optional capability of embedding text into the same
// space as images.
type TextEncoder interface {
	EmbedText(ctx context.Context, text string) (Vector, error)
}

var (
	// ErrUnavailable means the encoder could not be reached or timed out.
	// Callers may retry.
	ErrUnavailable = errors.New("encoder: unavailable")

	// ErrRejected means the encoder refused the input image.
	ErrRejected = errors.New("encoder: image rejected")

	// ErrZeroVector is returned when a model produced an all-zero embedding.
	ErrZeroVector = errors.New("encoder: zero vector")

	// ErrDimensionMismatch is returned when the output size differs from
	// the configured dimension.
	ErrDimensionMismatch = errors.New("encoder: dimension mismatch")
)

// Unit returns a unit-length copy of v.
func Unit(v []float32) (Vector, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, ErrZeroVector
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out, nil
}

// Dot is the inner product of two equal-length vectors.
func Dot(a, b Vector) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// ErrTextUnsupported is returned when text embedding is requested from an
// encoder without that capability.
var ErrTextUnsupported = errors.New("encoder: text embedding not supported")

// AsTextEncoder returns the text capability of enc, if any.
func AsTextEncoder(enc Encoder) (TextEncoder, bool) {
	if t, ok := enc.(*Throttled); ok {
		if _, ok := t.Encoder.(TextEncoder); !ok {
			return nil, false
		}
	}
	te, ok := enc.(TextEncoder)
	return te, ok
}
