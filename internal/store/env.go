package store

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/docharvest/internal/config"
)

// FromEnv builds the ObjectStore backend selected by STORAGE_BACKEND
// ("s3", the default, or "gcs").
func FromEnv(ctx context.Context) (ObjectStore, error) {
	backend := config.GetEnv("STORAGE_BACKEND", "s3")
	switch backend {
	case "s3":
		bucket := config.GetEnv("S3_BUCKET_NAME", "")
		if bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME environment variable must be set")
		}
		return NewS3Store(ctx, bucket, config.GetEnv("AWS_DEFAULT_REGION", ""))
	case "gcs":
		bucket := config.GetEnv("GCS_BUCKET_NAME", "")
		if bucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET_NAME environment variable must be set")
		}
		return NewGCSStore(ctx, bucket)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (expected s3 or gcs)", backend)
	}
}
