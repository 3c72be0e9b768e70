package slip

import (
	"time"

	"github.com/zombor/slip-scanner/internal/extract"
)

// Scan is the outcome of reading one slip image. It seeds the expense form
// and is never stored.
type Scan struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Recognizer  string         `json:"recognizer"`
	Text        string         `json:"text"`
	Fields      extract.Result `json:"fields"`
	Cached      bool           `json:"cached"` // text came from the recognition cache
	ScannedAt   time.Time      `json:"scanned_at"`
}
