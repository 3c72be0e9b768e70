package slip

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zombor/slip-scanner/internal/scanning"
)

// maxUploadSize bounds slip uploads; phone photos stay well under it
const maxUploadSize = int64(20 << 20)

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// scanErrorStatus maps a ScanSlip error to a status code and user message
func scanErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, scanning.ErrEmptyImage):
		return http.StatusBadRequest, "The uploaded file is empty."
	case errors.Is(err, scanning.ErrNotImage):
		return http.StatusUnsupportedMediaType, "Only image files can be scanned."
	case errors.Is(err, ErrUnreadable):
		return http.StatusUnprocessableEntity, ErrUnreadable.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// ContentTypeFor returns the declared content type, or one inferred from the
// filename extension when none was declared
func ContentTypeFor(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// handleScanSlip accepts a multipart slip upload and returns the scan.
// Clients sending Accept: text/event-stream get progress events first.
func (s *Server) handleScanSlip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 20MB. Please compress or resize your image.", http.StatusBadRequest)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a slip image to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := ContentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.streamScan(w, r, header.Filename, data, contentType)
		return
	}

	scan, err := s.service.ScanSlip(r.Context(), header.Filename, data, contentType, nil)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		slog.Error("Error scanning slip", "filename", header.Filename, "error", err)
		code, message := scanErrorStatus(err)
		jsonError(w, message, code)
		return
	}

	writeJSON(w, http.StatusOK, scan)
}

// sseWriter writes server-sent events; progress may arrive from a
// recognizer goroutine, so writes are serialized.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (e *sseWriter) send(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Error encoding event", "event", event, "error", err)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data)
	e.flusher.Flush()
}

// streamScan runs the scan while streaming progress, then a single result or error event
func (s *Server) streamScan(w http.ResponseWriter, r *http.Request, filename string, data []byte, contentType string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := &sseWriter{w: w, flusher: flusher}
	scan, err := s.service.ScanSlip(r.Context(), filename, data, contentType, func(percent float64) {
		events.send("progress", map[string]float64{"percent": percent})
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		slog.Error("Error scanning slip", "filename", filename, "error", err)
		code, message := scanErrorStatus(err)
		events.send("error", map[string]any{"error": message, "status": code})
		return
	}
	events.send("result", scan)
}

// handleExtractText extracts fields from text the client already recognized
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.ExtractText(req.Text, req.Category)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListCategories returns the expense categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Categories())
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"recognizer": s.service.RecognizerName(),
	})
}
