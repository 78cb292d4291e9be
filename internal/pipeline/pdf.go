package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/docharvest/internal/models"
)

var pdfMagic = []byte("%PDF")

// Extractor is the black-box PDF extraction capability: given a PDF on disk
// and a scratch directory for renditions, produce Markdown plus the embedded
// images in document order.
type Extractor interface {
	Extract(ctx context.Context, pdfPath, scratchDir string) (*models.StructuredDocument, error)
}

// PDFPipeline normalizes an uploaded PDF into a published Markdown document
// and its extracted images. The open and enterprise tiers differ only in the
// injected Extractor and the storage category.
type PDFPipeline struct {
	extractor Extractor
	publisher Publisher
	resolver  *Resolver
	category  string // e.g. "processed_pdfs/opensource"
	logger    *slog.Logger
}

// NewPDFPipeline wires a PDF pipeline for one tier.
func NewPDFPipeline(extractor Extractor, publisher Publisher, category string, logger *slog.Logger) *PDFPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFPipeline{
		extractor: extractor,
		publisher: publisher,
		resolver:  NewResolver(publisher, logger),
		category:  category,
		logger:    logger,
	}
}

// Process runs one PDF through validate → extract → resolve → rewrite →
// publish. Image-level failures degrade the run; extraction and Markdown
// publication failures are fatal.
func (p *PDFPipeline) Process(ctx context.Context, content []byte) (*models.Manifest, error) {
	// Cheap rejection before any extraction or upload work.
	if !bytes.HasPrefix(content, pdfMagic) {
		return nil, &InvalidInputError{Reason: "the provided file is not a valid PDF"}
	}

	folder, timestamp := runFolder("pdf", time.Now())
	logCtx := p.logger.With("uniqueFolder", folder, "category", p.category)
	logCtx.Info("Starting PDF processing run.", "size", len(content))

	scratchDir, err := os.MkdirTemp("", "docharvest-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	pdfPath := filepath.Join(scratchDir, "source.pdf")
	if err := os.WriteFile(pdfPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write scratch PDF: %w", err)
	}

	doc, err := p.extractor.Extract(ctx, pdfPath, scratchDir)
	if err != nil {
		logCtx.Error("PDF extraction failed.", "error", err)
		return nil, &ExtractionError{Op: "pdf extract", Err: err}
	}
	logCtx.Info("PDF extracted.", "pages", doc.PageCount, "images", len(doc.Images))

	refs := make([]ResourceReference, 0, len(doc.Images))
	for _, img := range doc.Images {
		refs = append(refs, ResourceReference{Original: img.Name, Path: img.Path})
	}
	imageMeta := map[string]string{
		"upload_timestamp": timestamp,
		"file_type":        "image",
		"unique_folder":    folder,
	}
	resolved := p.resolver.ResolveAll(ctx, refs, scratchDir,
		fmt.Sprintf("%s/%s/images", p.category, folder), imageMeta)

	markdown := RewriteText(doc.Markdown, resolved.RefMap)

	markdownPath := filepath.Join(scratchDir, fmt.Sprintf("%s.md", folder))
	if err := os.WriteFile(markdownPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write scratch Markdown: %w", err)
	}
	markdownMeta := map[string]string{
		"upload_timestamp": timestamp,
		"file_type":        "markdown",
		"unique_folder":    folder,
	}
	markdownURL, err := p.publisher.Publish(ctx, markdownPath,
		fmt.Sprintf("%s/%s/markdown", p.category, folder), markdownMeta)
	if err != nil {
		logCtx.Error("Markdown publication failed.", "error", err)
		return nil, err
	}

	logCtx.Info("PDF processing run complete.",
		"imageCount", len(resolved.ImageURLs), "failedImages", resolved.Failed)
	return AssembleManifest(markdownURL, resolved.ImageURLs, folder,
		"PDF processed and uploaded successfully", resolved.Failed), nil
}
