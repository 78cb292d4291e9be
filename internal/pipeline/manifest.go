package pipeline

import "github.com/Lllllllleong/docharvest/internal/models"

// AssembleManifest builds the run's result object. Pure data construction.
func AssembleManifest(markdownURL string, imageURLs []string, folder, message string, failed int) *models.Manifest {
	if imageURLs == nil {
		imageURLs = []string{}
	}
	return &models.Manifest{
		MarkdownURL:  markdownURL,
		ImageURLs:    imageURLs,
		UniqueFolder: folder,
		Status:       "success",
		Message:      message,
		FailedImages: failed,
	}
}
