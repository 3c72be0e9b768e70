package scanning

import (
	"context"
	"errors"
)

var (
	// ErrNotImage is returned for uploads that are not a raster image, such as PDFs.
	ErrNotImage = errors.New("not an image")
	// ErrEmptyImage is returned for zero-length uploads.
	ErrEmptyImage = errors.New("empty image")
)

// ProgressFunc receives recognition progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// Recognizer defines the interface for turning a slip image into raw text
type Recognizer interface {
	// Recognize reads all text in the image. Progress is reported in
	// non-decreasing steps and reaches 100 only on success.
	Recognize(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (string, error)
	// Name identifies the recognizer, e.g. "tesseract"
	Name() string
	// Close releases resources
	Close() error
}
