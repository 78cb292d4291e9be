package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/docharvest/internal/models"
)

// --- Parser Model Prompts ---
const ParserSystemPrompt = "You are a document parser and markdown translator. Your task is to parse the content of a PDF document and translate it into markdown format. Accuracy, detail, and information preservation are of utmost importance."
const ParserUserPrompt = `You will be provided with a PDF document:

Follow these instructions to parse the document and translate its content into markdown format:

Text: Parse all text content directly into markdown text.
Lists: Parse all lists into markdown lists, maintaining the original structure and formatting.
Images: Replace each image with a descriptive text that accurately describes the image's content. Be as detailed as possible in your description.
Tables: Parse all tables into markdown tables. If a table contains merged cells, normalize the table by copying and appending the content from the parent cells into the normalized child cells. This ensures that as much information as possible is preserved.
Headers and Footers: Ignore any irrelevant content in the header and footer, such as the publishing company's name, logo, address, or page numbers. Focus on preserving the core content of the document.
Your primary goal is to maintain the integrity and completeness of the document's content in the markdown output. Ensure that all details and information are accurately translated and preserved.`

// VertexClient holds the pre-configured generative model for document parsing.
type VertexClient struct {
	ParserModel *genai.GenerativeModel
	baseClient  *genai.Client
}

// NewVertexClient creates a client holding the parser model.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	parserModel := baseClient.GenerativeModel("gemini-1.5-pro")
	parserModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ParserSystemPrompt)},
	}
	parserModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ParserModel: parserModel,
		baseClient:  baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// CloudExtractor is the enterprise tier: document parsing is delegated to a
// managed model job, which may take seconds to minutes for large documents.
// Picture renditions are still enumerated locally so the run publishes the
// same artifact set as the open tier.
type CloudExtractor struct {
	vertex *VertexClient
	logger *slog.Logger
}

// NewCloudExtractor creates the enterprise-tier extractor.
func NewCloudExtractor(vertex *VertexClient, logger *slog.Logger) *CloudExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudExtractor{vertex: vertex, logger: logger}
}

// Extract submits the PDF to the parser model and collects the Markdown
// result, plus locally enumerated image renditions.
func (e *CloudExtractor) Extract(ctx context.Context, pdfPath, scratchDir string) (*models.StructuredDocument, error) {
	optimizedPath := pdfPath + ".optimized.pdf"
	if err := optimizePDF(pdfPath, optimizedPath); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	defer os.Remove(optimizedPath)

	pageCount, err := extractPageCount(optimizedPath)
	if err != nil {
		return nil, err
	}

	images, err := extractImages(optimizedPath, scratchDir)
	if err != nil {
		e.logger.Warn("Image rendition extraction failed; continuing without renditions.", "error", err)
		images = nil
	}

	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	filePart := genai.Blob{MIMEType: "application/pdf", Data: pdfBytes}
	resp, err := e.vertex.ParserModel.GenerateContent(ctx, filePart, genai.Text(ParserUserPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	markdown := extractMarkdown(resp)
	if err := checkRefusal(markdown); err != nil {
		e.logger.Error("Model refused to parse the document.", "response", markdown)
		return nil, err
	}
	if markdown == "" {
		e.logger.Warn("No markdown content extracted from response. Treating as empty document.")
	}

	return &models.StructuredDocument{
		Markdown:  markdown,
		Images:    images,
		PageCount: pageCount,
	}, nil
}

// extractMarkdown parses the model's response and robustly extracts text content.
func extractMarkdown(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	content := strings.TrimSpace(sb.String())
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// checkRefusal fails fast when the model declines instead of parsing.
func checkRefusal(markdown string) error {
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot answer",
		"i cannot provide",
		"as a large language model",
	}
	lower := strings.ToLower(markdown)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("gemini response indicates refusal")
		}
	}
	return nil
}
