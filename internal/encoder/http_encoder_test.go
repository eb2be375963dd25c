package encoder

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEncoderEmbed(t *testing.T) {
	raw := pngBytes(t, 4, 4, color.White)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embed/image":
			var req imageRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "png", req.Format)
			_ = json.NewEncoder(w).Encode(vectorResponse{Vector: []float32{0, 2, 0}})
		case "/embed/text":
			_ = json.NewEncoder(w).Encode(vectorResponse{Vector: []float32{1, 0, 0}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	enc := NewHTTPEncoder(srv.URL+"/", WithDimension(3))

	vec, err := enc.Embed(context.Background(), RawBytes(raw))
	require.NoError(t, err)
	assert.Equal(t, Vector{0, 1, 0}, vec)

	vec, err = enc.EmbedText(context.Background(), "a husky")
	require.NoError(t, err)
	assert.Equal(t, Vector{1, 0, 0}, vec)
}

func TestHTTPEncoderErrors(t *testing.T) {
	raw := pngBytes(t, 2, 2, color.White)

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rejected", http.StatusBadRequest, `{"error":"cannot identify image file"}`, ErrRejected},
		{"server error", http.StatusInternalServerError, `boom`, ErrUnavailable},
		{"throttled", http.StatusTooManyRequests, ``, ErrUnavailable},
		{"too large", http.StatusRequestEntityTooLarge, ``, ErrRejected},
		{"unsupported media", http.StatusUnsupportedMediaType, ``, ErrRejected},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":"not an image"}`, ErrRejected},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, ErrUnavailable},
		{"forbidden", http.StatusForbidden, ``, ErrUnavailable},
		{"wrong route", http.StatusNotFound, `404 page not found`, ErrUnavailable},
		{"bad json", http.StatusOK, `{`, ErrUnavailable},
		{"wrong dimension", http.StatusOK, `{"vector":[1,2]}`, ErrDimensionMismatch},
		{"zero vector", http.StatusOK, `{"vector":[0,0,0]}`, ErrZeroVector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPEncoder(srv.URL, WithDimension(3)).Embed(context.Background(), RawBytes(raw))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPEncoderTimeout(t *testing.T) {
	raw := pngBytes(t, 2, 2, color.White)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	enc := NewHTTPEncoder(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := enc.Embed(context.Background(), RawBytes(raw))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPEncoderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPEncoder(url).EmbedText(context.Background(), "cat")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPEncoderBadImageNeverSent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewHTTPEncoder(srv.URL).Embed(context.Background(), RawBytes("not an image"))
	require.ErrorIs(t, err, ErrNotAnImage)
	assert.Zero(t, calls.Load())
}
