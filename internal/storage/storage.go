// Package storage provides access to the object store holding the pipeline's
// inputs and artifacts. It exposes a small bucket/object API with two
// interchangeable backends: Google Cloud Storage for production and a local
// filesystem layout (one directory per bucket) for development and tests.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by New.
const (
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// ObjectStore defines the object storage operations used by the pipeline.
type ObjectStore interface {
	// Upload writes data to the specified bucket and object name.
	// contentType is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download reads the specified object. The returned ReadCloser must be
	// closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object in the bucket whose name starts
	// with prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes the specified object. Deleting an object that
	// does not exist is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
	// SetPublicRead makes the specified object publicly readable, on
	// backends that support access control.
	SetPublicRead(ctx context.Context, bucket, objectName string) error
	// Close releases any resources held by the store.
	Close() error
}

// New creates an ObjectStore for the named backend. credentialsFile is used
// only by the GCS backend (empty means default credentials); baseDir is used
// only by the local backend.
func New(ctx context.Context, backend, credentialsFile, baseDir string) (ObjectStore, error) {
	switch backend {
	case BackendGCS:
		return newGCSStore(ctx, credentialsFile)
	case BackendLocal:
		return newLocalStore(baseDir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
