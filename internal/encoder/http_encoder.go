package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPEncoder talks to an external embedding service exposing
// POST /embed/image and POST /embed/text, both answering {"vector": [...]}.
type HTTPEncoder struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	dim     int
}

type HTTPOption func(*HTTPEncoder)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEncoder) { e.client = c }
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(e *HTTPEncoder) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithDimension makes the encoder reject vectors of any other size.
func WithDimension(dim int) HTTPOption {
	return func(e *HTTPEncoder) { e.dim = dim }
}

func NewHTTPEncoder(baseURL string, opts ...HTTPOption) *HTTPEncoder {
	e := &HTTPEncoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return e
}

func (e *HTTPEncoder) Dimension() int { return e.dim }

type imageRequest struct {
	Image  string `json:"image"`
	Format string `json:"format,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

type vectorResponse struct {
	Vector []float32 `json:"vector"`
	Error  string    `json:"error,omitempty"`
}

func (e *HTTPEncoder) Embed(ctx context.Context, img Image) (Vector, error) {
	n, err := Normalize(img)
	if err != nil {
		return nil, err
	}
	return e.post(ctx, "/embed/image", imageRequest{
		Image:  base64.StdEncoding.EncodeToString(n.Bytes),
		Format: n.Format,
	})
}

func (e *HTTPEncoder) EmbedText(ctx context.Context, text string) (Vector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPayload
	}
	return e.post(ctx, "/embed/text", textRequest{Text: text})
}

func (e *HTTPEncoder) post(ctx context.Context, path string, payload any) (Vector, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoder: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("encoder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, classifyCtxErr(fmt.Errorf("%w: read response: %v", ErrUnavailable, err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case rejectedStatus(resp.StatusCode):
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, snippet(raw))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, snippet(raw))
	}

	var out vectorResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if e.dim > 0 && len(out.Vector) != e.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(out.Vector), e.dim)
	}
	return Unit(out.Vector)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// rejectedStatus reports whether the encoder refused the payload itself.
// Auth failures, missing routes and throttling say nothing about the image.
func rejectedStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
