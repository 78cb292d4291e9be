package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Lllllllleong/docharvest/internal/config"
	"github.com/Lllllllleong/docharvest/internal/models"
)

const defaultCrawlActor = "apify~website-content-crawler"

// ManagedCrawl is the enterprise tier: the page is rendered by a hosted
// crawl actor which returns both HTML and server-side Markdown. The
// synchronous run endpoint blocks until the actor finishes, which can take
// seconds to minutes.
type ManagedCrawl struct {
	client  *http.Client
	baseURL string
	token   string
	actor   string
	logger  *slog.Logger
}

// ManagedCrawlConfig holds the crawl-service connection settings.
type ManagedCrawlConfig struct {
	BaseURL string
	Token   string
	Actor   string
}

// LoadManagedCrawlConfig reads the crawl-service settings from the environment.
func LoadManagedCrawlConfig() (*ManagedCrawlConfig, error) {
	token := config.GetEnv("APIFY_TOKEN", "")
	if token == "" {
		return nil, fmt.Errorf("APIFY_TOKEN environment variable must be set")
	}
	return &ManagedCrawlConfig{
		BaseURL: config.GetEnv("APIFY_BASE_URL", "https://api.apify.com"),
		Token:   token,
		Actor:   config.GetEnv("APIFY_ACTOR", defaultCrawlActor),
	}, nil
}

// NewManagedCrawl creates the enterprise-tier crawler.
func NewManagedCrawl(cfg *ManagedCrawlConfig, logger *slog.Logger) *ManagedCrawl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagedCrawl{
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		actor:   cfg.Actor,
		logger:  logger,
	}
}

// actorInput is the run input for the website-content-crawler actor.
type actorInput struct {
	StartURLs     []startURL `json:"startUrls"`
	MaxCrawlPages int        `json:"maxCrawlPages"`
	MaxCrawlDepth int        `json:"maxCrawlDepth"`
	SaveHTML      bool       `json:"saveHtml"`
	SaveMarkdown  bool       `json:"saveMarkdown"`
}

type startURL struct {
	URL string `json:"url"`
}

// datasetItem is one crawled page in the actor's dataset output.
type datasetItem struct {
	URL      string `json:"url"`
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
}

// Crawl runs the actor synchronously against a single page and returns the
// first dataset item.
func (m *ManagedCrawl) Crawl(ctx context.Context, pageURL string) (*models.CrawlResult, error) {
	input := actorInput{
		StartURLs:     []startURL{{URL: pageURL}},
		MaxCrawlPages: 1,
		MaxCrawlDepth: 0,
		SaveHTML:      true,
		SaveMarkdown:  true,
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal actor input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s&format=json",
		m.baseURL, m.actor, url.QueryEscape(m.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create actor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	m.logger.Info("Submitting managed crawl run.", "url", pageURL, "actor", m.actor)
	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actor run failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 100*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read actor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("actor run returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var items []datasetItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode actor dataset: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("actor run produced no dataset items for %s", pageURL)
	}

	m.logger.Info("Managed crawl run complete.", "url", pageURL, "duration", time.Since(start).String())
	item := items[0]
	return &models.CrawlResult{URL: item.URL, HTML: item.HTML, Markdown: item.Markdown}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
