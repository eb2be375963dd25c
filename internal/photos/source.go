// Package photos opens advertisement photos by their stored reference.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"petfinder/internal/encoder"
)

// MaxPhotoBytes bounds a single photo read.
const MaxPhotoBytes = encoder.MaxImageBytes

var ErrInvalidRef = errors.New("photos: invalid photo reference")

type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// ReadAll reads a whole photo, refusing anything larger than MaxPhotoBytes.
func ReadAll(ctx context.Context, src Source, ref string) ([]byte, error) {
	rc, err := src.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("photos: read %s: %w", ref, err)
	}
	if len(data) > MaxPhotoBytes {
		return nil, fmt.Errorf("photos: %s: %w", ref, encoder.ErrImageTooLarge)
	}
	return data, nil
}

// FS serves photos from a local media root.
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FS{root: abs}, nil
}

// Path resolves ref inside the media root.
func (f *FS) Path(ref string) (string, error) {
	clean, err := cleanRef(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

func (f *FS) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	path, err := f.Path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// cleanRef normalises a stored reference and rejects ones that would
// escape the root.
func cleanRef(ref string) (string, error) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, `\`, "/"))
	ref = strings.TrimPrefix(ref, "/")
	if ref == "" {
		return "", ErrInvalidRef
	}
	clean := filepath.ToSlash(filepath.Clean(ref))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return clean, nil
}
