package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore is the Cloud Storage ObjectStore backend. Credentials come from
// application default credentials.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
}

// NewGCSStore creates a GCS-backed object store for the given bucket.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket name must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

// Put writes an object only if it doesn't already exist. Keys are freshly
// generated per upload, so a precondition failure means a generator collision
// and is treated as a skip rather than an error.
func (g *GCSStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error {
	writer := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = opts.ContentType
	writer.Metadata = opts.Metadata

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Warn("SKIPPING: Object already exists.", "key", key)
			return nil
		}
		return fmt.Errorf("failed to write to GCS object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write for %s: %w", key, err)
	}
	return nil
}

// URL returns the public locator for an uploaded object.
func (g *GCSStore) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.name, key)
}
