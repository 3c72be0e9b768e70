package slip

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/slip-scanner/internal/extract"
	"github.com/zombor/slip-scanner/internal/scanning"
)

var (
	// ErrUnreadable wraps recognizer failures. Callers show a generic
	// "could not read the slip" message.
	ErrUnreadable = errors.New("could not read the slip")
	// ErrEmptyText is returned when there is no text to extract from.
	ErrEmptyText = errors.New("no text to extract from")
	// ErrInvalidCategory is returned for a category override that is not a known id.
	ErrInvalidCategory = errors.New("invalid category")
)

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service reads slips: it runs the recognizer and feeds its text to the
// extraction engine.
type Service struct {
	recognizer  scanning.Recognizer
	cache       TextCache
	engine      *extract.Engine
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// A nil cache disables caching.
func NewService(recognizer scanning.Recognizer, cache TextCache) *Service {
	timeSrc := &defaultTimeSource{}
	return NewServiceWithDeps(recognizer, cache, extract.NewWithClock(timeSrc), &uuidGenerator{}, timeSrc)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(recognizer scanning.Recognizer, cache TextCache, engine *extract.Engine, idGen IDGenerator, timeSrc TimeSource) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		recognizer:  recognizer,
		cache:       cache,
		engine:      engine,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// RecognizerName returns the name of the configured recognizer
func (s *Service) RecognizerName() string {
	return s.recognizer.Name()
}

// cacheKey identifies an image for one recognizer
func cacheKey(recognizer string, data []byte) string {
	sum := sha256.Sum256(data)
	return recognizer + ":" + hex.EncodeToString(sum[:])
}

// ScanSlip recognizes the text on a slip image and extracts the form fields.
// Non-images are rejected before the recognizer runs. If the recognizer
// fails, the error wraps ErrUnreadable and no fields are extracted; if ctx is
// cancelled first, ctx.Err() is returned.
func (s *Service) ScanSlip(ctx context.Context, filename string, data []byte, contentType string, progress scanning.ProgressFunc) (*Scan, error) {
	if len(data) == 0 {
		return nil, scanning.ErrEmptyImage
	}
	if !scanning.IsImage(data, contentType) {
		return nil, fmt.Errorf("%s (%s): %w", filename, contentType, scanning.ErrNotImage)
	}

	key := cacheKey(s.recognizer.Name(), data)
	text, cached, err := s.cache.GetText(key)
	if err != nil {
		slog.Warn("Failed to read recognition cache", "key", key, "error", err)
		cached = false
	}

	if cached {
		scanning.NewProgressReporter(progress).Done()
	} else {
		text, err = s.recognizer.Recognize(ctx, data, contentType, progress)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				slog.Info("Slip scan abandoned", "filename", filename, "error", ctxErr)
				return nil, ctxErr
			}
			slog.Error("Failed to recognize slip",
				"filename", filename,
				"content_type", contentType,
				"file_size", len(data),
				"recognizer", s.recognizer.Name(),
				"error", err,
			)
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		if err := s.cache.PutText(key, text); err != nil {
			slog.Warn("Failed to write recognition cache", "key", key, "error", err)
		}
	}

	fields := s.engine.Extract(text)
	scan := &Scan{
		ID:          s.idGenerator.Generate(),
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Recognizer:  s.recognizer.Name(),
		Text:        text,
		Fields:      fields,
		Cached:      cached,
		ScannedAt:   s.timeSource.Now(),
	}

	slog.Info("Scanned slip",
		"id", scan.ID,
		"filename", scan.Filename,
		"cached", cached,
		"date", fields.Date.String(),
		"amount_found", fields.Amount.Valid,
		"category", fields.Category,
	)

	return scan, nil
}

// ExtractText runs the extraction engine over text the client recognized itself.
// A non-empty category replaces the guessed one and must be a known id.
func (s *Service) ExtractText(text, category string) (extract.Result, error) {
	if strings.TrimSpace(text) == "" {
		return extract.Result{}, ErrEmptyText
	}

	var override extract.Category
	if category != "" {
		parsed, err := extract.ParseCategory(category)
		if err != nil {
			return extract.Result{}, fmt.Errorf("%w: %w", ErrInvalidCategory, err)
		}
		override = parsed
	}

	result := s.engine.Extract(text)
	if override != "" {
		result.Category = override
	}
	return result, nil
}

// Categories returns the expense categories in display order
func (s *Service) Categories() []extract.CategoryInfo {
	return extract.Categories()
}
