// Package tesseract reads slips with a local Tesseract install through
// gosseract. It needs libtesseract and the tha/eng traineddata at build and
// run time, which is why it lives outside package scanning.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/slip-scanner/internal/scanning"
)

// DefaultLanguages covers Thai bank slips with English merchant names
const DefaultLanguages = "tha+eng"

// Tesseract implements scanning.Recognizer with a local Tesseract engine
type Tesseract struct {
	languages []string
}

// New creates a Tesseract recognizer. languages uses Tesseract's "tha+eng" form.
func New(languages string) (*Tesseract, error) {
	var langs []string
	for _, lang := range strings.Split(languages, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return nil, fmt.Errorf("at least one tesseract language is required")
	}
	return &Tesseract{languages: langs}, nil
}

// Name returns "tesseract"
func (t *Tesseract) Name() string {
	return "tesseract"
}

type ocrResult struct {
	text string
	err  error
}

// Recognize runs OCR on the slip image. Tesseract itself cannot be
// interrupted, so a cancelled context returns at once and the worker
// finishes in the background.
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte, contentType string, progress scanning.ProgressFunc) (string, error) {
	reporter := scanning.NewProgressReporter(progress)
	defer reporter.Stop()
	reporter.Report(scanning.ProgressStarted)

	pngData, err := scanning.PrepareImage(imageData, contentType)
	if err != nil {
		return "", err
	}
	reporter.Report(scanning.ProgressPrepared)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan ocrResult, 1)
	go func() {
		text, err := t.recognize(pngData, reporter)
		done <- ocrResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		reporter.Done()
		return strings.TrimSpace(res.text), nil
	}
}

func (t *Tesseract) recognize(pngData []byte, reporter *scanning.ProgressReporter) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting tesseract languages: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("loading image into tesseract: %w", err)
	}
	reporter.Report(scanning.ProgressSent)

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return text, nil
}

// Close is a no-op; each Recognize call owns its own client.
func (t *Tesseract) Close() error {
	return nil
}
