// Package api is the thin HTTP layer over the processing pipelines: request
// decoding, per-URL fan-out and error shaping, no pipeline logic.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// PDFProcessor runs one uploaded PDF through a processing tier.
type PDFProcessor interface {
	Process(ctx context.Context, content []byte) (*models.Manifest, error)
}

// WebProcessor runs one URL through a processing tier.
type WebProcessor interface {
	Process(ctx context.Context, pageURL string) (*models.Manifest, error)
}

// Server holds the wired pipelines. A nil tier means the corresponding
// third-party service is not configured; its endpoints answer 503.
type Server struct {
	pdfOpen       PDFProcessor
	pdfEnterprise PDFProcessor
	webOpen       WebProcessor
	webEnterprise WebProcessor
	logger        *slog.Logger
	maxUploadSize int64
	scrapeLimit   int
}

// NewServer creates the API server around the four pipeline tiers.
func NewServer(pdfOpen, pdfEnterprise PDFProcessor, webOpen, webEnterprise WebProcessor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pdfOpen:       pdfOpen,
		pdfEnterprise: pdfEnterprise,
		webOpen:       webOpen,
		webEnterprise: webEnterprise,
		logger:        logger,
		maxUploadSize: 100 * 1024 * 1024,
		scrapeLimit:   4,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleDemoPage)
	r.Get("/healthz", s.handleHealth)

	r.Post("/process-pdf", s.handleProcessPDF(s.pdfOpen))
	r.Post("/process-pdf/enterprise", s.handleProcessPDF(s.pdfEnterprise))
	r.Post("/scrape-web", s.handleScrapeWeb(s.webOpen))
	r.Post("/scrape-web/enterprise", s.handleScrapeWeb(s.webEnterprise))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
