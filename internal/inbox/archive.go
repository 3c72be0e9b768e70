package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Outcome names the archive folder a processed slip is moved to.
type Outcome string

const (
	OutcomeDone   Outcome = "done"
	OutcomeFailed Outcome = "failed"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// Archive keeps processed slip images on the local filesystem
type Archive struct {
	basePath string
}

// NewArchive creates a new Archive rooted at basePath
func NewArchive(basePath string) (*Archive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Archive{basePath: basePath}, nil
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	// keep letters of any script, so Thai names survive
	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// truncate by runes, not bytes, to keep UTF-8 valid
	if runes := []rune(base); len(runes) > 50 {
		base = string(runes[:50])
	}

	if base == "" {
		base = "slip"
	}

	return base + strings.ToLower(ext)
}

// Store writes data into the outcome folder as <prefix>_<sanitized name>
// and returns the path relative to the archive root.
func (a *Archive) Store(outcome Outcome, prefix, filename string, data []byte) (string, error) {
	dir := filepath.Join(a.basePath, string(outcome))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", outcome, err)
	}

	name := fmt.Sprintf("%s_%s", prefix, sanitizeFilename(filename))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filepath.Join(string(outcome), name), nil
}
