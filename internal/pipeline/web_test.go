package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// fakeCrawler hands back a canned crawl result.
type fakeCrawler struct {
	html     string
	markdown string
	err      error
}

func (f *fakeCrawler) Crawl(_ context.Context, pageURL string) (*models.CrawlResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CrawlResult{URL: pageURL, HTML: f.html, Markdown: f.markdown}, nil
}

func TestWebPipeline_RejectsRelativeURL(t *testing.T) {
	p := NewWebPipeline(&fakeCrawler{}, &fakePublisher{}, "scraped_websites", "web", nil)

	for _, bad := range []string{"example.com/page", "/just/a/path", "://broken"} {
		_, err := p.Process(context.Background(), bad)
		var invalid *InvalidInputError
		assert.ErrorAs(t, err, &invalid, "url %q", bad)
	}
}

func TestWebPipeline_Success(t *testing.T) {
	srv := resourceServer(t, map[string][]byte{
		"/img/one.png": []byte("one"),
		"/img/two.png": []byte("two"),
	})
	crawler := &fakeCrawler{
		html: `<html><body><h1>Title</h1><img src="/img/one.png"><p>text</p><img src="/img/two.png"></body></html>`,
	}
	pub := &fakePublisher{}
	p := NewWebPipeline(crawler, pub, "scraped_websites", "web", nil)

	manifest, err := p.Process(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "success", manifest.Status)
	assert.True(t, strings.HasPrefix(manifest.UniqueFolder, "web_"))
	assert.Equal(t, 0, manifest.FailedImages)
	require.Len(t, manifest.ImageURLs, 2)
	assert.Contains(t, manifest.ImageURLs[0], "one.png")
	assert.Contains(t, manifest.ImageURLs[1], "two.png")

	markdownCalls := pub.callsTo("/markdown")
	require.Len(t, markdownCalls, 1)
	published := string(markdownCalls[0].content)
	assert.Contains(t, published, "Title")
	assert.Contains(t, published, manifest.ImageURLs[0])
	assert.Contains(t, published, manifest.ImageURLs[1])
	assert.NotContains(t, published, "/img/one.png")
}

func TestWebPipeline_BrokenImageDegradesRun(t *testing.T) {
	srv := resourceServer(t, map[string][]byte{
		"/img/one.png": []byte("one"),
	})
	crawler := &fakeCrawler{
		html: `<html><body><img src="/img/one.png"><img src="/img/gone.png"></body></html>`,
	}
	pub := &fakePublisher{}
	p := NewWebPipeline(crawler, pub, "scraped_websites", "web", nil)

	manifest, err := p.Process(context.Background(), srv.URL+"/page")
	require.NoError(t, err, "a broken image must not fail the run")

	assert.Equal(t, 1, manifest.FailedImages)
	require.Len(t, manifest.ImageURLs, 1)
	assert.Contains(t, manifest.ImageURLs[0], "one.png")
}

func TestWebPipeline_ManagedMarkdownIsRewrittenNotConverted(t *testing.T) {
	srv := resourceServer(t, map[string][]byte{
		"/img/one.png": []byte("one"),
	})
	imageURL := srv.URL + "/img/one.png"
	crawler := &fakeCrawler{
		html:     fmt.Sprintf(`<html><body><img src="%s"></body></html>`, imageURL),
		markdown: fmt.Sprintf("# Rendered upstream\n\n![one](%s)\n", imageURL),
	}
	pub := &fakePublisher{}
	p := NewWebPipeline(crawler, pub, "scraped_websites/enterprise", "enterprise", nil)

	manifest, err := p.Process(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(manifest.UniqueFolder, "enterprise_"))

	markdownCalls := pub.callsTo("/markdown")
	require.Len(t, markdownCalls, 1)
	published := string(markdownCalls[0].content)
	assert.Contains(t, published, "# Rendered upstream", "upstream Markdown must be kept as-is")
	assert.Contains(t, published, manifest.ImageURLs[0])
	assert.NotContains(t, published, imageURL)
}

func TestWebPipeline_SkipsDataURIsAndDuplicates(t *testing.T) {
	srv := resourceServer(t, map[string][]byte{
		"/img/one.png": []byte("one"),
	})
	crawler := &fakeCrawler{
		html: `<html><body>` +
			`<img src="data:image/png;base64,aGk=">` +
			`<img src="/img/one.png">` +
			`<img src="/img/one.png">` +
			`</body></html>`,
	}
	pub := &fakePublisher{}
	p := NewWebPipeline(crawler, pub, "scraped_websites", "web", nil)

	manifest, err := p.Process(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.Len(t, manifest.ImageURLs, 1, "data URIs and duplicate targets are not fetched")
	assert.Equal(t, 0, manifest.FailedImages)
}

func TestWebPipeline_CrawlFailureIsFatal(t *testing.T) {
	tmpRoot := t.TempDir()
	t.Setenv("TMPDIR", tmpRoot)

	crawler := &fakeCrawler{err: fmt.Errorf("connection refused")}
	pub := &fakePublisher{}
	p := NewWebPipeline(crawler, pub, "scraped_websites", "web", nil)

	_, err := p.Process(context.Background(), "https://unreachable.example/page")

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Empty(t, pub.published())

	entries, err := os.ReadDir(tmpRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed run must leave no temp state behind")
}

func TestWebPipeline_MarkdownPublishFailureIsFatal(t *testing.T) {
	crawler := &fakeCrawler{html: `<html><body><p>text</p></body></html>`}
	pub := &fakePublisher{
		failOn: func(_, sourceCategory string) error {
			if strings.Contains(sourceCategory, "/markdown") {
				return fmt.Errorf("bucket unavailable")
			}
			return nil
		},
	}
	p := NewWebPipeline(crawler, pub, "scraped_websites", "web", nil)

	_, err := p.Process(context.Background(), "https://site.example/page")
	require.Error(t, err)
	assert.ErrorContains(t, err, "bucket unavailable")
}
