package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	_ "golang.org/x/image/webp"
)

const (
	MaxImageBytes  = 10 << 20
	MaxImagePixels = 8192 * 8192
)

// Bad-input family. IsBadInput reports membership.
var (
	ErrEmptyPayload   = errors.New("encoder: empty image payload")
	ErrInvalidDataURL = errors.New("encoder: invalid data URL")
	ErrNotBase64      = errors.New("encoder: payload is not base64")
	ErrNotAnImage     = errors.New("encoder: payload is not a recognizable image")
	ErrImageTooLarge  = errors.New("encoder: image too large")
)

func IsBadInput(err error) bool {
	return errors.Is(err, ErrEmptyPayload) ||
		errors.Is(err, ErrInvalidDataURL) ||
		errors.Is(err, ErrNotBase64) ||
		errors.Is(err, ErrNotAnImage) ||
		errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrRejected)
}

// Image is the closed set of accepted image inputs: RawBytes, FilePath or
// Decoded. Normalize is the single place that turns any of them into bytes
// plus a decoded image.
type Image interface {
	isImage()
}

// RawBytes is an encoded image (JPEG, PNG, GIF, WebP).
type RawBytes []byte

// FilePath points at an encoded image on the local filesystem.
type FilePath string

// Decoded wraps an already decoded image.
type Decoded struct {
	Image image.Image
}

func (RawBytes) isImage() {}
func (FilePath) isImage() {}
func (Decoded) isImage()  {}

// Normalized is a validated image: the encoded bytes, the decoded pixels and
// the detected format name ("jpeg", "png", ...).
type Normalized struct {
	Bytes  []byte
	Image  image.Image
	Format string
}

// Normalize validates img and decodes it.
func Normalize(img Image) (Normalized, error) {
	switch v := img.(type) {
	case RawBytes:
		return decodeBytes(v)
	case FilePath:
		data, err := os.ReadFile(string(v))
		if err != nil {
			return Normalized{}, fmt.Errorf("encoder: read %s: %w", v, err)
		}
		return decodeBytes(data)
	case Decoded:
		if v.Image == nil || v.Image.Bounds().Empty() {
			return Normalized{}, ErrNotAnImage
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, v.Image); err != nil {
			return Normalized{}, fmt.Errorf("encoder: re-encode decoded image: %w", err)
		}
		return Normalized{Bytes: buf.Bytes(), Image: v.Image, Format: "png"}, nil
	case nil:
		return Normalized{}, ErrEmptyPayload
	default:
		return Normalized{}, fmt.Errorf("encoder: unsupported image input %T", img)
	}
}

func decodeBytes(data []byte) (Normalized, error) {
	if len(data) == 0 {
		return Normalized{}, ErrEmptyPayload
	}
	if len(data) > MaxImageBytes {
		return Normalized{}, ErrImageTooLarge
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Normalized{}, ErrNotAnImage
	}
	if cfg.Width*cfg.Height > MaxImagePixels {
		return Normalized{}, ErrImageTooLarge
	}
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return Normalized{Bytes: data, Image: decoded, Format: format}, nil
}

// ParsePayload turns an uploaded string payload into raw image bytes. It
// accepts plain base64 or a data URL of the form data:image/<fmt>;base64,....
// The bytes are not yet checked to be an image; pass them to Normalize.
func ParsePayload(payload string) (RawBytes, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, ErrInvalidDataURL
		}
		if !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidDataURL
		}
		payload = body
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotBase64, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	return RawBytes(data), nil
}
