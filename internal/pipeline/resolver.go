package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Publisher is the artifact-store capability the resolver and pipelines
// publish through. Satisfied by store.Publisher; faked in tests.
type Publisher interface {
	Publish(ctx context.Context, localPath, sourceCategory string, metadata map[string]string) (string, error)
}

// ResourceReference is one embedded resource discovered in a source document.
// Either Path is set (bytes already extracted to the run's scratch dir, PDF
// case) or Resolved holds an absolute fetch URL (web case). Original is the
// locator as written in the source document.
type ResourceReference struct {
	Original string
	Resolved string
	Path     string
}

// ResolveResult is the outcome of resolving all references of one run.
// RefMap holds only fully resolved references, keyed by both the as-written
// and the absolute locator form; failed references are absent. ImageURLs
// preserves document order.
type ResolveResult struct {
	RefMap    map[string]string
	ImageURLs []string
	Failed    int
}

// Resolver obtains bytes for each resource reference and publishes them via
// the artifact store. Per-reference failures are recorded and skipped, never
// propagated.
type Resolver struct {
	publisher Publisher
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	maxBytes  int64
}

// NewResolver creates a Resolver with a dedicated fetch client.
func NewResolver(publisher Publisher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		publisher: publisher,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		userAgent: "docharvest/1.0",
		maxBytes:  20 * 1024 * 1024,
	}
}

// ResolveAll resolves references one at a time, in document order. A
// reference that fails to fetch or publish is logged, counted and omitted;
// resolution of the remaining references continues.
func (r *Resolver) ResolveAll(ctx context.Context, refs []ResourceReference, scratchDir, sourceCategory string, metadata map[string]string) *ResolveResult {
	result := &ResolveResult{RefMap: make(map[string]string)}

	for _, ref := range refs {
		publishedURL, err := r.resolveOne(ctx, ref, scratchDir, sourceCategory, metadata)
		if err != nil {
			result.Failed++
			r.logger.Warn("Failed to resolve resource; omitting from output.",
				"locator", ref.Original, "error", err)
			continue
		}
		result.RefMap[ref.Original] = publishedURL
		if ref.Resolved != "" {
			result.RefMap[ref.Resolved] = publishedURL
		}
		result.ImageURLs = append(result.ImageURLs, publishedURL)
	}
	return result
}

// resolveOne obtains the reference's bytes, publishes them and releases the
// temporary holding file on every exit path.
func (r *Resolver) resolveOne(ctx context.Context, ref ResourceReference, scratchDir, sourceCategory string, metadata map[string]string) (string, error) {
	localPath := ref.Path
	if localPath == "" {
		fetched, err := r.fetchToFile(ctx, ref.Resolved, scratchDir)
		if err != nil {
			return "", &ResourceFetchError{Locator: ref.Resolved, Err: err}
		}
		localPath = fetched
		defer os.Remove(localPath)
	} else {
		// Already-extracted bytes: the file lives in the scratch dir and is
		// released once published.
		defer os.Remove(localPath)
	}

	publishedURL, err := r.publisher.Publish(ctx, localPath, sourceCategory, metadata)
	if err != nil {
		return "", &ResourceFetchError{Locator: ref.Original, Err: err}
	}
	return publishedURL, nil
}

// fetchToFile downloads a resource into the scratch dir and returns the path.
func (r *Resolver) fetchToFile(ctx context.Context, resourceURL, scratchDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return "", fmt.Errorf("resource exceeds %d bytes", r.maxBytes)
	}

	localPath := filepath.Join(scratchDir, fmt.Sprintf("fetch_%s_%s", shortToken(), resourceFilename(resourceURL)))
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return localPath, nil
}

// resourceFilename derives a usable local filename from the resource URL,
// synthesizing one when the URL path yields nothing.
func resourceFilename(resourceURL string) string {
	parsed, err := url.Parse(resourceURL)
	if err != nil {
		return fmt.Sprintf("image_%s.png", shortToken())
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("image_%s.png", shortToken())
	}
	return name
}
