package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// Crawler is the black-box web capability: fetch or render one page and
// return its HTML (and, for managed crawl services, server-side Markdown).
type Crawler interface {
	Crawl(ctx context.Context, pageURL string) (*models.CrawlResult, error)
}

// WebPipeline normalizes one web page into a published Markdown document and
// its downloaded images. The open and enterprise tiers differ only in the
// injected Crawler, the storage category and the folder prefix.
type WebPipeline struct {
	crawler      Crawler
	publisher    Publisher
	resolver     *Resolver
	category     string // e.g. "scraped_websites" or "scraped_websites/enterprise"
	folderPrefix string // "web" or "enterprise"
	logger       *slog.Logger
}

// NewWebPipeline wires a web pipeline for one tier.
func NewWebPipeline(crawler Crawler, publisher Publisher, category, folderPrefix string, logger *slog.Logger) *WebPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebPipeline{
		crawler:      crawler,
		publisher:    publisher,
		resolver:     NewResolver(publisher, logger),
		category:     category,
		folderPrefix: folderPrefix,
		logger:       logger,
	}
}

// Process runs one URL through crawl → resolve → rewrite → convert → publish.
// Image-level failures degrade the run; crawl, parse and Markdown publication
// failures are fatal.
func (p *WebPipeline) Process(ctx context.Context, pageURL string) (*models.Manifest, error) {
	baseURL, err := url.Parse(pageURL)
	if err != nil || !baseURL.IsAbs() {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("not an absolute URL: %q", pageURL)}
	}

	folder, timestamp := runFolder(p.folderPrefix, time.Now())
	logCtx := p.logger.With("uniqueFolder", folder, "url", pageURL)
	logCtx.Info("Starting web processing run.")

	scratchDir, err := os.MkdirTemp("", "docharvest-web-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	crawled, err := p.crawler.Crawl(ctx, pageURL)
	if err != nil {
		logCtx.Error("Crawl failed.", "error", err)
		return nil, &ExtractionError{Op: "crawl", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(crawled.HTML))
	if err != nil {
		return nil, &ExtractionError{Op: "parse html", Err: err}
	}

	refs := enumerateImages(doc, baseURL)
	logCtx.Info("Page crawled.", "imageRefs", len(refs))

	imageMeta := map[string]string{
		"original_url":     pageURL,
		"upload_timestamp": timestamp,
		"file_type":        "image",
		"unique_folder":    folder,
	}
	resolved := p.resolver.ResolveAll(ctx, refs, scratchDir,
		fmt.Sprintf("%s/%s/images", p.category, folder), imageMeta)

	markdown, err := p.assembleMarkdown(doc, crawled, pageURL, resolved.RefMap)
	if err != nil {
		return nil, err
	}

	markdownPath := filepath.Join(scratchDir, fmt.Sprintf("%s.md", folder))
	if err := os.WriteFile(markdownPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write scratch Markdown: %w", err)
	}
	markdownMeta := map[string]string{
		"original_url":     pageURL,
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

	logCtx.Info("Web processing run complete.",
		"imageCount", len(resolved.ImageURLs), "failedImages", resolved.Failed)
	return AssembleManifest(markdownURL, resolved.ImageURLs, folder,
		"Webpage scraped and uploaded successfully", resolved.Failed), nil
}

// assembleMarkdown produces the final Markdown. Managed crawl services return
// Markdown directly, so the rewrite happens on the rendered text; the open
// tier rewrites the img attributes while the original locators are still
// addressable, then converts the updated HTML.
func (p *WebPipeline) assembleMarkdown(doc *goquery.Document, crawled *models.CrawlResult, pageURL string, refMap map[string]string) (string, error) {
	if crawled.Markdown != "" {
		return RewriteText(crawled.Markdown, refMap), nil
	}

	RewriteHTML(doc, refMap)
	html, err := doc.Html()
	if err != nil {
		return "", &ExtractionError{Op: "render html", Err: err}
	}
	converter := md.NewConverter(pageURL, true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", &ExtractionError{Op: "convert markdown", Err: err}
	}
	return markdown, nil
}

// enumerateImages collects the page's img references in document order,
// resolving each src against the page URL. Data URIs are already embedded and
// skipped; duplicate targets keep their first occurrence.
func enumerateImages(doc *goquery.Document, baseURL *url.URL) []ResourceReference {
	var refs []ResourceReference
	seen := make(map[string]bool)

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		parsed, err := url.Parse(src)
		if err != nil {
			return
		}
		absolute := baseURL.ResolveReference(parsed).String()
		if seen[absolute] {
			return
		}
		seen[absolute] = true
		refs = append(refs, ResourceReference{Original: src, Resolved: absolute})
	})
	return refs
}
