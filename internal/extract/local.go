// Package extract provides the PDF extraction capabilities behind the
// pipeline's Extractor boundary: a local pdfcpu-based tier and an enterprise
// tier that delegates document parsing to a cloud model.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// LocalExtractor is the open tier: pure-Go structural extraction with pdfcpu.
type LocalExtractor struct {
	logger *slog.Logger
}

// NewLocalExtractor creates the open-tier extractor.
func NewLocalExtractor(logger *slog.Logger) *LocalExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalExtractor{logger: logger}
}

// Extract optimizes the PDF, pulls out embedded images and page content, and
// assembles Markdown that references each image by its rendition name.
func (e *LocalExtractor) Extract(ctx context.Context, pdfPath, scratchDir string) (*models.StructuredDocument, error) {
	optimizedPath := filepath.Join(scratchDir, "optimized.pdf")
	if err := optimizePDF(pdfPath, optimizedPath); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}

	pageCount, err := extractPageCount(optimizedPath)
	if err != nil {
		return nil, err
	}

	images, err := extractImages(optimizedPath, scratchDir)
	if err != nil {
		// Not fatal: text-only PDFs are still worth a Markdown document.
		e.logger.Warn("Image extraction failed; continuing without renditions.", "error", err)
		images = nil
	}

	pageTexts, err := extractPageTexts(optimizedPath, scratchDir)
	if err != nil {
		e.logger.Warn("Content extraction failed; continuing with image references only.", "error", err)
		pageTexts = nil
	}

	markdown := assembleMarkdown(pageCount, pageTexts, images)
	e.logger.Debug("Local extraction complete.", "pages", pageCount, "images", len(images))

	return &models.StructuredDocument{
		Markdown:  markdown,
		Images:    images,
		PageCount: pageCount,
	}, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func extractPageCount(path string) (int, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

// imageFilePattern matches pdfcpu rendition names: optimized_<page>_<res>.<ext>.
var imageFilePattern = regexp.MustCompile(`^optimized_(\d+)_.+\.\w+$`)

// extractImages writes every embedded picture rendition into a scratch
// subdirectory and returns them ordered by page, then name.
func extractImages(optimizedPath, scratchDir string) ([]models.ExtractedImage, error) {
	imagesDir := filepath.Join(scratchDir, "renditions")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create renditions dir: %w", err)
	}

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractImagesFile(optimizedPath, imagesDir, nil, cfg); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read renditions dir: %w", err)
	}

	type rendition struct {
		page int
		img  models.ExtractedImage
	}
	var renditions []rendition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := imageFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, _ := strconv.Atoi(m[1])
		renditions = append(renditions, rendition{
			page: page,
			img: models.ExtractedImage{
				Name: entry.Name(),
				Path: filepath.Join(imagesDir, entry.Name()),
			},
		})
	}
	sort.Slice(renditions, func(i, j int) bool {
		if renditions[i].page != renditions[j].page {
			return renditions[i].page < renditions[j].page
		}
		return renditions[i].img.Name < renditions[j].img.Name
	})

	images := make([]models.ExtractedImage, 0, len(renditions))
	for _, r := range renditions {
		images = append(images, r.img)
	}
	return images, nil
}

// extractPageTexts pulls the per-page content into a map keyed by page number.
func extractPageTexts(optimizedPath, scratchDir string) (map[int]string, error) {
	contentDir := filepath.Join(scratchDir, "content")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContentFile(optimizedPath, contentDir, nil, cfg); err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	pageTexts := make(map[int]string)
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		name := entry.Name()
		if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(name, "optimized_Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		content, err := os.ReadFile(filepath.Join(contentDir, name))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = strings.TrimSpace(string(content))
	}
	return pageTexts, nil
}

// assembleMarkdown lays out page text and image references in document order.
// Each image is referenced by its rendition name; the pipeline substitutes
// the durable URL after publication.
func assembleMarkdown(pageCount int, pageTexts map[int]string, images []models.ExtractedImage) string {
	imagesByPage := make(map[int][]models.ExtractedImage)
	for _, img := range images {
		m := imageFilePattern.FindStringSubmatch(img.Name)
		page := 0
		if m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		imagesByPage[page] = append(imagesByPage[page], img)
	}

	var sb strings.Builder
	for page := 1; page <= pageCount; page++ {
		if text := pageTexts[page]; text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
		for _, img := range imagesByPage[page] {
			fmt.Fprintf(&sb, "![%s](%s)\n\n", img.Name, img.Name)
		}
	}
	return strings.TrimSpace(sb.String())
}
