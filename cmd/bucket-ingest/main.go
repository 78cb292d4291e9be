package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/docharvest/internal/config"
	"github.com/Lllllllleong/docharvest/internal/extract"
	"github.com/Lllllllleong/docharvest/internal/models"
	"github.com/Lllllllleong/docharvest/internal/pipeline"
	dstore "github.com/Lllllllleong/docharvest/internal/store"
)

var (
	ingestInstance *ingestFunction
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("IngestPDF", ingestPDF)
}

// main is required by the Go Functions Framework.
func main() {}

// gcsEvent is the data payload of a google.cloud.storage.object.v1.finalized event.
type gcsEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// pdfProcessor runs one PDF through a processing tier.
type pdfProcessor interface {
	Process(ctx context.Context, content []byte) (*models.Manifest, error)
}

// objectReader pulls an object's bytes out of a bucket.
type objectReader interface {
	ReadObject(ctx context.Context, bucket, name string) ([]byte, error)
}

// gcsObjectReader reads objects through the Cloud Storage client.
type gcsObjectReader struct {
	client *storage.Client
}

func (g *gcsObjectReader) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	reader, err := g.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening gs://%s/%s: %w", bucket, name, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading gs://%s/%s: %w", bucket, name, err)
	}
	return content, nil
}

// ingestFunction holds the long-lived clients for the bucket-triggered path:
// PDFs dropped into the watch bucket are run through the open-tier pipeline
// and the resulting manifest is logged.
type ingestFunction struct {
	objects     objectReader
	pdfPipeline pdfProcessor
	watchBucket string
	logger      *slog.Logger
}

func newIngestFunction(ctx context.Context) (*ingestFunction, error) {
	logger := slog.Default()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	objectStore, err := dstore.FromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing object store: %w", err)
	}
	publisher := dstore.NewPublisher(objectStore, logger)

	return &ingestFunction{
		objects: &gcsObjectReader{client: storageClient},
		pdfPipeline: pipeline.NewPDFPipeline(
			extract.NewLocalExtractor(logger), publisher, "processed_pdfs/opensource", logger),
		watchBucket: config.GetEnv("WATCH_BUCKET", ""),
		logger:      logger,
	}, nil
}

// ingestPDF is the Cloud Function entry point.
func ingestPDF(ctx context.Context, e cloudevents.Event) error {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		ingestInstance, initErr = newIngestFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var event gcsEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return ingestInstance.process(ctx, event)
}

func (f *ingestFunction) process(ctx context.Context, event gcsEvent) error {
	if f.watchBucket != "" && event.Bucket != f.watchBucket {
		f.logger.Info("Skipping object outside the watch bucket.", "bucket", event.Bucket, "name", event.Name)
		return nil
	}
	if !strings.HasSuffix(strings.ToLower(event.Name), ".pdf") {
		f.logger.Info("Skipping non-PDF object.", "bucket", event.Bucket, "name", event.Name)
		return nil
	}

	f.logger.Info("Ingesting bucket object.", "bucket", event.Bucket, "name", event.Name)

	content, err := f.objects.ReadObject(ctx, event.Bucket, event.Name)
	if err != nil {
		f.logger.Error("Failed to read bucket object", "error", err, "name", event.Name)
		return err
	}

	manifest, err := f.pdfPipeline.Process(ctx, content)
	if err != nil {
		f.logger.Error("Pipeline run failed", "error", err, "name", event.Name)
		return err
	}

	f.logger.Info("Bucket object processed.",
		"name", event.Name,
		"unique_folder", manifest.UniqueFolder,
		"markdown_s3_url", manifest.MarkdownURL,
		"images", len(manifest.ImageURLs))
	return nil
}
