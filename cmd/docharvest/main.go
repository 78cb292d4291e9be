package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/Lllllllleong/docharvest/internal/api"
	"github.com/Lllllllleong/docharvest/internal/config"
	"github.com/Lllllllleong/docharvest/internal/crawl"
	"github.com/Lllllllleong/docharvest/internal/extract"
	"github.com/Lllllllleong/docharvest/internal/pipeline"
	"github.com/Lllllllleong/docharvest/internal/store"
)

func main() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	objectStore, err := store.FromEnv(ctx)
	if err != nil {
		logger.Error("Critical error during storage initialization", "error", err)
		os.Exit(1)
	}
	publisher := store.NewPublisher(objectStore, logger)

	pdfOpen := pipeline.NewPDFPipeline(
		extract.NewLocalExtractor(logger), publisher, "processed_pdfs/opensource", logger)

	// The enterprise tiers depend on third-party services; when their
	// credentials are absent the server still runs and the corresponding
	// endpoints answer 503.
	var pdfEnterprise api.PDFProcessor
	if projectID := config.GetEnv("PROJECT_ID", ""); projectID != "" {
		vertexClient, err := extract.NewVertexClient(ctx, projectID, config.GetEnv("VERTEX_AI_REGION", "us-central1"))
		if err != nil {
			logger.Error("Critical error during vertex initialization", "error", err)
			os.Exit(1)
		}
		defer vertexClient.Close()
		pdfEnterprise = pipeline.NewPDFPipeline(
			extract.NewCloudExtractor(vertexClient, logger), publisher, "processed_pdfs/enterprise", logger)
	} else {
		logger.Warn("PROJECT_ID not set; enterprise PDF extraction disabled.")
	}

	webOpen := pipeline.NewWebPipeline(
		crawl.NewDirectFetch(logger), publisher, "scraped_websites", "web", logger)

	var webEnterprise api.WebProcessor
	if crawlCfg, err := crawl.LoadManagedCrawlConfig(); err == nil {
		webEnterprise = pipeline.NewWebPipeline(
			crawl.NewManagedCrawl(crawlCfg, logger), publisher, "scraped_websites/enterprise", "enterprise", logger)
	} else {
		logger.Warn("Managed crawl not configured; enterprise scraping disabled.", "reason", err)
	}

	server := api.NewServer(pdfOpen, pdfEnterprise, webOpen, webEnterprise, logger)

	addr := ":" + config.GetEnv("PORT", "8080")
	logger.Info("docharvest listening.", "addr", addr)
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		logger.Error("Server terminated", "error", err)
		os.Exit(1)
	}
}
