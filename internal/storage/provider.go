// Package storage defines the interface for a blob storage provider used to
// export job result snapshots. The abstraction keeps the worker independent
// of a specific backend (GCS, the local filesystem, or memory).
package storage

import (
	"context"
)

// BlobStore writes raw artifacts and returns a URI for the stored object.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// NoOpBlobStore is a blob store that discards writes. It is useful for
// running the worker without an export destination.
type NoOpBlobStore struct{}

// PutObject for NoOpBlobStore does nothing and returns an empty URI.
func (NoOpBlobStore) PutObject(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
