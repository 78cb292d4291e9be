package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docharvest/internal/models"
	"github.com/Lllllllleong/docharvest/internal/pipeline"
)

// handleProcessPDF accepts a multipart upload (field "file") and runs it
// through the given tier.
func (s *Server) handleProcessPDF(proc PDFProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if proc == nil {
			writeError(w, http.StatusServiceUnavailable, "enterprise PDF extraction is not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}

		manifest, err := proc.Process(r.Context(), content)
		if err != nil {
			s.writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, manifest)
	}
}

// handleScrapeWeb accepts {"urls": [...]} and processes each URL
// independently: one URL's failure lands in its own result slot and never
// affects the others.
func (s *Server) handleScrapeWeb(proc WebProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if proc == nil {
			writeError(w, http.StatusServiceUnavailable, "enterprise web crawling is not configured")
			return
		}

		var req models.ScrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "could not parse JSON body")
			return
		}
		if len(req.URLs) == 0 {
			writeError(w, http.StatusBadRequest, "urls must not be empty")
			return
		}

		results := make(map[string]any, len(req.URLs))
		var mu sync.Mutex

		eg, ctx := errgroup.WithContext(r.Context())
		eg.SetLimit(s.scrapeLimit)
		for _, pageURL := range req.URLs {
			eg.Go(func() error {
				manifest, err := proc.Process(ctx, pageURL)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.logger.Warn("Scrape run failed.", "url", pageURL, "error", err)
					results[pageURL] = models.ErrorResult{Error: err.Error()}
				} else {
					results[pageURL] = manifest
				}
				return nil
			})
		}
		_ = eg.Wait() // per-URL errors are captured in the result map

		writeJSON(w, http.StatusOK, models.ScrapeResponse{MarkdownResults: results})
	}
}

// writeRunError converts a pipeline failure into a structured error response.
// Internal details are logged, never leaked.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var invalid *pipeline.InvalidInputError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusBadRequest, invalid.Error())
		return
	}
	s.logger.Error("Processing run failed.", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
