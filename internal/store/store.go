// Package store publishes run artifacts to an object store under structured,
// collision-free keys.
package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PutOptions carries per-object upload attributes.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
	// Encrypt requests server-side encryption where the backend supports
	// choosing it per object (S3 AES256). GCS encrypts unconditionally.
	Encrypt bool
}

// ObjectStore is the storage capability boundary. Implementations must not
// read before writing; every key handed to Put is freshly generated and never
// contended.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error
	URL(key string) string
}

// extensionType maps file extensions to the artifact type segment of the
// storage key. The type is derived here, never caller-supplied, so storage
// organization stays consistent regardless of caller intent.
var extensionType = map[string]string{
	".md":   "markdown",
	".txt":  "text",
	".png":  "images",
	".jpg":  "images",
	".jpeg": "images",
	".pdf":  "pdfs",
	".html": "html",
}

// ArtifactType returns the storage type segment for a file extension.
// Unknown extensions fall into "other".
func ArtifactType(ext string) string {
	if t, ok := extensionType[strings.ToLower(ext)]; ok {
		return t
	}
	return "other"
}

// Publisher is the artifact store adapter. It builds object keys, attaches
// metadata and hands uploads to the configured backend.
type Publisher struct {
	store  ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a Publisher on top of the given backend.
func NewPublisher(store ObjectStore, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// objectKey builds a structured storage key:
// {sourceCategory}/{artifactType}/{YYYY}/{MM}/{DD}/{uniqueID}{ext}.
// The unique id is a fresh random token per call, so retried uploads produce
// a new key and never overwrite a prior artifact.
func (p *Publisher) objectKey(sourceCategory, ext string) string {
	today := p.now().UTC()
	return fmt.Sprintf("%s/%s/%s/%s%s",
		sourceCategory,
		ArtifactType(ext),
		today.Format("2006/01/02"),
		strings.ReplaceAll(uuid.New().String(), "-", ""),
		strings.ToLower(ext),
	)
}

// Publish uploads a local file and returns its durable public URL.
// Failures are reported as *StorageError; the caller decides whether that is
// fatal for the run.
func (p *Publisher) Publish(ctx context.Context, localPath, sourceCategory string, metadata map[string]string) (string, error) {
	ext := filepath.Ext(localPath)
	key := p.objectKey(sourceCategory, ext)

	f, err := os.Open(localPath)
	if err != nil {
		return "", &StorageError{Key: key, Err: fmt.Errorf("open %s: %w", localPath, err)}
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(ext))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := PutOptions{
		ContentType: contentType,
		Metadata:    metadata,
		Encrypt:     true,
	}
	if err := p.store.Put(ctx, key, f, opts); err != nil {
		p.logger.Error("Artifact upload failed.", "key", key, "error", err)
		return "", &StorageError{Key: key, Err: err}
	}

	url := p.store.URL(key)
	p.logger.Debug("Artifact published.", "key", key, "url", url)
	return url, nil
}

// StorageError reports a failed upload to the object store.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: upload of %s failed: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
