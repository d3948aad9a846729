package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// gcsStore implements ObjectStore on Google Cloud Storage.
type gcsStore struct {
	client *gcs.Client
}

var _ ObjectStore = (*gcsStore)(nil)

func newGCSStore(ctx context.Context, credentialsFile string) (*gcsStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &gcsStore{client: client}, nil
}

func (s *gcsStore) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := s.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s/%s: %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

func (s *gcsStore) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s/%s: %w", bucket, objectName, err)
	}
	return r, nil
}

func (s *gcsStore) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := s.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list bucket %s: %w", bucket, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

func (s *gcsStore) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := s.client.Bucket(bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

func (s *gcsStore) SetPublicRead(ctx context.Context, bucket, objectName string) error {
	acl := s.client.Bucket(bucket).Object(objectName).ACL()
	if err := acl.Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return fmt.Errorf("failed to set public read on %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
