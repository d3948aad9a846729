package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// localStore implements ObjectStore on the local filesystem. Each bucket is a
// directory under baseDir and each object is a file within it.
type localStore struct {
	baseDir string
}

var _ ObjectStore = (*localStore)(nil)

func newLocalStore(baseDir string) (*localStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("local storage requires a base directory")
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory %s: %w", baseDir, err)
		}
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory %s: %w", baseDir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", baseDir)
	}
	return &localStore{baseDir: baseDir}, nil
}

func (s *localStore) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := s.resolvePath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", fullPath, err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()
	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return nil
}

func (s *localStore) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	fullPath, err := s.resolvePath(bucket, objectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", fullPath, err)
	}
	return file, nil
}

func (s *localStore) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	bucketDir, err := s.resolvePath(bucket, "")
	if err != nil {
		return err
	}
	if _, err := os.Stat(bucketDir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(bucketDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		objectName, err := filepath.Rel(bucketDir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve object name for %s: %w", path, err)
		}
		objectName = filepath.ToSlash(objectName)
		if !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
}

func (s *localStore) DeleteObject(ctx context.Context, bucket, objectName string) error {
	fullPath, err := s.resolvePath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	return nil
}

// SetPublicRead is a no-op for the local backend.
func (s *localStore) SetPublicRead(ctx context.Context, bucket, objectName string) error {
	return nil
}

func (s *localStore) Close() error {
	return nil
}

// resolvePath joins baseDir, bucket and objectName and verifies the result
// does not escape baseDir.
func (s *localStore) resolvePath(bucket, objectName string) (string, error) {
	fullPath := filepath.Join(s.baseDir, bucket, objectName)

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory %s: %w", s.baseDir, err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", fullPath, err)
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes base directory %s", fullPath, s.baseDir)
	}
	return fullPath, nil
}
