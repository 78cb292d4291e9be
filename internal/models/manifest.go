package models

// Manifest is the result contract of one processing run. The field names are
// part of the public API and mirror the storage backend they point at.
type Manifest struct {
	MarkdownURL  string   `json:"markdown_s3_url"`
	ImageURLs    []string `json:"image_s3_urls"`
	UniqueFolder string   `json:"unique_folder"`
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	FailedImages int      `json:"failed_images,omitempty"`
}

// ErrorResult is the per-URL failure slot in a scrape batch response.
type ErrorResult struct {
	Error string `json:"error"`
}

// ScrapeRequest is the inbound payload for the scrape endpoints.
type ScrapeRequest struct {
	URLs []string `json:"urls"`
}

// ScrapeResponse maps each requested URL to either a Manifest or an ErrorResult.
type ScrapeResponse struct {
	MarkdownResults map[string]any `json:"markdown_results"`
}
