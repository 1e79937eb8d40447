package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSBlobStore implements BlobStore on Google Cloud Storage.
type GCSBlobStore struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

// NewGCSBlobStore initializes a GCS client and verifies the bucket is
// reachable, failing fast on startup if configuration is wrong.
// Authentication uses Application Default Credentials.
func NewGCSBlobStore(ctx context.Context, bucket string, logger *zap.Logger) (*GCSBlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close gcs client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucket, err)
	}
	return &GCSBlobStore{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

// PutObject uploads data to the bucket and returns a gs:// URI.
func (g *GCSBlobStore) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			g.logger.Warn("failed to close gcs writer after write failure", zap.Error(closeErr))
		}
		return "", fmt.Errorf("write gcs object %s: %w", path, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close gcs writer for object %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, path), nil
}

// Close releases the underlying client.
func (g *GCSBlobStore) Close() error {
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
