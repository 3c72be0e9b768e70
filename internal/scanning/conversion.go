package scanning

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
)

// IsImage reports whether data looks like a raster image the recognizers
// can read. PDFs and text are rejected.
func IsImage(data []byte, contentType string) bool {
	if isHEICFormat(data) || isHEICMimeType(contentType) {
		return true
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return true
	}
	// formats the sniffer does not know, like TIFF, are trusted by declared type
	return sniffed == "application/octet-stream" &&
		strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// decodeImage decodes HEIC with the pure Go decoder and everything else
// through imaging, applying the EXIF orientation phones write.
func decodeImage(imageData []byte, mimeType string) (image.Image, error) {
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, BMP, TIFF, HEIC, HEIF: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files typically start with specific magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	// ftyp box at offset 4 followed by a HEIC-family brand
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// PrepareImage validates an upload and converts it to PNG for the
// recognizers. PNGs pass through unchanged; no enhancement is applied.
func PrepareImage(imageData []byte, contentType string) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if !IsImage(imageData, mimeType) {
		return nil, fmt.Errorf("content type %q: %w", mimeType, ErrNotImage)
	}

	if http.DetectContentType(imageData) == "image/png" {
		return imageData, nil
	}

	img, err := decodeImage(imageData, mimeType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
