// Package crawl provides the web capabilities behind the pipeline's Crawler
// boundary: a plain HTTP fetch tier and an enterprise tier delegating to a
// managed crawl service.
package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// DirectFetch is the open tier: a single GET of the target page.
type DirectFetch struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// NewDirectFetch creates the open-tier crawler.
func NewDirectFetch(logger *slog.Logger) *DirectFetch {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectFetch{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "docharvest/1.0",
		maxBytes:  50 * 1024 * 1024,
		logger:    logger,
	}
}

// Crawl fetches the page and returns its HTML. Non-2xx responses and
// transport errors are crawl failures.
func (d *DirectFetch) Crawl(ctx context.Context, pageURL string) (*models.CrawlResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, fmt.Errorf("fetch %s: page exceeds %d bytes", pageURL, d.maxBytes)
	}

	d.logger.Debug("Page fetched.", "url", pageURL, "bytes", len(body))
	return &models.CrawlResult{URL: pageURL, HTML: string(body)}, nil
}
