package models

// ExtractedImage is one embedded picture pulled out of a PDF during
// extraction. Name is the locator the assembled Markdown refers to the image
// by; Path points at the rendition file inside the run's scratch directory.
type ExtractedImage struct {
	Name string
	Path string
}

// StructuredDocument is the output of a PDF extraction capability.
// Markdown references each image by its Name; the pipeline rewrites those
// references to durable URLs after publication.
type StructuredDocument struct {
	Markdown  string
	Images    []ExtractedImage
	PageCount int
}

// CrawlResult is the output of a web crawl capability. Markdown is only set
// by managed crawl services that render it server-side; the open tier
// converts HTML locally.
type CrawlResult struct {
	URL      string
	HTML     string
	Markdown string
}
