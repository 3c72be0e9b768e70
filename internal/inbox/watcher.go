// Package inbox scans slip images dropped into a folder and writes one JSON
// line per slip.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zombor/slip-scanner/internal/scanning"
	"github.com/zombor/slip-scanner/internal/slip"
)

// DefaultSettleDelay is how long a file must stay unchanged before it is scanned
const DefaultSettleDelay = 500 * time.Millisecond

var slipExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".tif": true, ".tiff": true, ".heic": true, ".heif": true,
}

// Scanner reads one slip image
type Scanner interface {
	ScanSlip(ctx context.Context, filename string, data []byte, contentType string, progress scanning.ProgressFunc) (*slip.Scan, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Line is one JSON line of watcher output
type Line struct {
	File    string     `json:"file"`
	Scan    *slip.Scan `json:"scan,omitempty"`
	Error   string     `json:"error,omitempty"`
	Archive string     `json:"archive,omitempty"`
}

// Watcher scans slip images as they appear in a directory
type Watcher struct {
	dir        string
	scanner    Scanner
	archive    *Archive
	settle     time.Duration
	timeSource TimeSource

	outMu sync.Mutex
	out   io.Writer

	// one scan at a time; OCR saturates the CPU anyway
	scanMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher creates a Watcher. archive may be nil, in which case processed
// files are left in place.
func NewWatcher(dir string, scanner Scanner, archive *Archive, out io.Writer, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Watcher{
		dir:        dir,
		scanner:    scanner,
		archive:    archive,
		settle:     settle,
		timeSource: &defaultTimeSource{},
		out:        out,
		pending:    make(map[string]*time.Timer),
	}
}

func isSlipFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slipExtensions[strings.ToLower(filepath.Ext(base))]
}

// Run watches the directory until ctx is cancelled. Images already present
// are scanned first. Pending scans are dropped on shutdown; a scan in
// progress is allowed to finish.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.Info("Watching for slips", "dir", w.dir)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && isSlipFile(entry.Name()) {
			w.schedule(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				w.stop()
				return nil
			}
			if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && isSlipFile(event.Name) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				w.stop()
				return nil
			}
			slog.Warn("File watcher error", "dir", w.dir, "error", err)
		}
	}
}

// schedule (re)starts the settle timer for path
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.process(ctx, path)
	})
	w.pending[path] = t
}

// stop drops pending scans and waits for the running one
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) process(ctx context.Context, path string) {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// already archived by an earlier event
			return
		}
		slog.Error("Failed to read slip", "path", path, "error", err)
		w.emit(Line{File: filepath.Base(path), Error: err.Error()})
		return
	}

	name := filepath.Base(path)
	scan, err := w.scanner.ScanSlip(ctx, name, data, slip.ContentTypeFor("", name), nil)
	if err != nil && ctx.Err() != nil {
		return
	}

	line := Line{File: name, Scan: scan}
	outcome, prefix := OutcomeDone, ""
	if err != nil {
		line.Error = err.Error()
		outcome, prefix = OutcomeFailed, w.timeSource.Now().Format("20060102-150405")
	} else {
		prefix = scan.ID
	}

	if w.archive != nil {
		archived, archiveErr := w.archive.Store(outcome, prefix, name, data)
		if archiveErr != nil {
			slog.Error("Failed to archive slip", "path", path, "error", archiveErr)
		} else if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("Failed to remove archived slip", "path", path, "error", rmErr)
		} else {
			line.Archive = archived
		}
	}

	w.emit(line)
}

func (w *Watcher) emit(line Line) {
	data, err := json.Marshal(line)
	if err != nil {
		slog.Error("Error encoding watcher output", "file", line.File, "error", err)
		return
	}

	w.outMu.Lock()
	defer w.outMu.Unlock()
	if _, err := fmt.Fprintf(w.out, "%s\n", data); err != nil {
		slog.Error("Error writing watcher output", "error", err)
	}
}
