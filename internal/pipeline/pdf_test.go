package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// fakeExtractor writes the configured images into the scratch dir and returns
// a document referencing them, the way a real extraction run would.
type fakeExtractor struct {
	markdown string
	images   []string
	err      error
	calls    int
}

func (f *fakeExtractor) Extract(_ context.Context, _, scratchDir string) (*models.StructuredDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	doc := &models.StructuredDocument{Markdown: f.markdown, PageCount: 1}
	for _, name := range f.images {
		path := filepath.Join(scratchDir, name)
		if err := os.WriteFile(path, []byte("bytes-of-"+name), 0o644); err != nil {
			return nil, err
		}
		doc.Images = append(doc.Images, models.ExtractedImage{Name: name, Path: path})
	}
	return doc, nil
}

var minimalPDF = []byte("%PDF-1.4\n%%EOF\n")

func TestPDFPipeline_RejectsNonPDFBeforeAnyWork(t *testing.T) {
	extractor := &fakeExtractor{}
	pub := &fakePublisher{}
	p := NewPDFPipeline(extractor, pub, "processed_pdfs/opensource", nil)

	_, err := p.Process(context.Background(), []byte("<html>not a pdf</html>"))

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, extractor.calls, "extraction must not run for rejected input")
	assert.Empty(t, pub.published(), "nothing may be uploaded for rejected input")
}

func TestPDFPipeline_Success(t *testing.T) {
	extractor := &fakeExtractor{
		markdown: "# Title\n\n![one](page_1_one.png)\n\ntext\n\n![two](page_2_two.png)\n",
		images:   []string{"page_1_one.png", "page_2_two.png"},
	}
	pub := &fakePublisher{}
	p := NewPDFPipeline(extractor, pub, "processed_pdfs/opensource", nil)

	manifest, err := p.Process(context.Background(), minimalPDF)
	require.NoError(t, err)

	assert.Equal(t, "success", manifest.Status)
	assert.True(t, strings.HasPrefix(manifest.UniqueFolder, "pdf_"))
	assert.Equal(t, 0, manifest.FailedImages)
	require.Len(t, manifest.ImageURLs, 2)
	assert.Contains(t, manifest.ImageURLs[0], "page_1_one.png")
	assert.Contains(t, manifest.ImageURLs[1], "page_2_two.png")

	imageCalls := pub.callsTo("/images")
	require.Len(t, imageCalls, 2)
	for _, call := range imageCalls {
		assert.Contains(t, call.category,
			fmt.Sprintf("processed_pdfs/opensource/%s/images", manifest.UniqueFolder))
		assert.Equal(t, "image", call.metadata["file_type"])
		assert.Equal(t, manifest.UniqueFolder, call.metadata["unique_folder"])
	}

	markdownCalls := pub.callsTo("/markdown")
	require.Len(t, markdownCalls, 1)
	published := string(markdownCalls[0].content)
	assert.Contains(t, published, manifest.ImageURLs[0])
	assert.Contains(t, published, manifest.ImageURLs[1])
	assert.NotContains(t, published, "](page_1_one.png)")
	assert.Equal(t, manifest.UniqueFolder+".md", markdownCalls[0].base)
	assert.Equal(t, manifest.MarkdownURL,
		fmt.Sprintf("https://store.example/%s/%s", markdownCalls[0].category, markdownCalls[0].base))
}

func TestPDFPipeline_ImageFailureDegradesRun(t *testing.T) {
	extractor := &fakeExtractor{
		markdown: "![one](page_1_one.png)\n![two](page_2_two.png)\n",
		images:   []string{"page_1_one.png", "page_2_two.png"},
	}
	pub := &fakePublisher{
		failOn: func(localPath, _ string) error {
			if strings.Contains(localPath, "page_1_one.png") {
				return fmt.Errorf("bucket unavailable")
			}
			return nil
		},
	}
	p := NewPDFPipeline(extractor, pub, "processed_pdfs/opensource", nil)

	manifest, err := p.Process(context.Background(), minimalPDF)
	require.NoError(t, err, "a single failed image must not fail the run")

	assert.Equal(t, "success", manifest.Status)
	assert.Equal(t, 1, manifest.FailedImages)
	require.Len(t, manifest.ImageURLs, 1)
	assert.Contains(t, manifest.ImageURLs[0], "page_2_two.png")

	markdownCalls := pub.callsTo("/markdown")
	require.Len(t, markdownCalls, 1)
	published := string(markdownCalls[0].content)
	assert.Contains(t, published, "](page_1_one.png)", "failed reference keeps its original locator")
	assert.Contains(t, published, manifest.ImageURLs[0])
}

func TestPDFPipeline_ExtractionFailureIsFatal(t *testing.T) {
	extractor := &fakeExtractor{err: fmt.Errorf("corrupt xref table")}
	pub := &fakePublisher{}
	p := NewPDFPipeline(extractor, pub, "processed_pdfs/opensource", nil)

	_, err := p.Process(context.Background(), minimalPDF)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Empty(t, pub.published())
}

func TestPDFPipeline_MarkdownPublishFailureIsFatal(t *testing.T) {
	extractor := &fakeExtractor{markdown: "# Title\n"}
	pub := &fakePublisher{
		failOn: func(_, sourceCategory string) error {
			if strings.Contains(sourceCategory, "/markdown") {
				return fmt.Errorf("bucket unavailable")
			}
			return nil
		},
	}
	p := NewPDFPipeline(extractor, pub, "processed_pdfs/opensource", nil)

	_, err := p.Process(context.Background(), minimalPDF)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestPDFPipeline_CleansUpScratchState(t *testing.T) {
	tmpRoot := t.TempDir()
	t.Setenv("TMPDIR", tmpRoot)

	extractor := &fakeExtractor{
		markdown: "![one](page_1_one.png)\n",
		images:   []string{"page_1_one.png"},
	}
	p := NewPDFPipeline(extractor, &fakePublisher{}, "processed_pdfs/opensource", nil)

	_, err := p.Process(context.Background(), minimalPDF)
	require.NoError(t, err)

	entries, err := os.ReadDir(tmpRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "run must leave no temp state behind")
}
