// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the bucket objects are written to.
type Config struct {
	Bucket string
}

// objectWriter is the part of *storage.Writer the store needs.
type objectWriter interface {
	io.WriteCloser
}

// writerFunc opens a writer for one object.
type writerFunc func(ctx context.Context, bucket, object, contentType string) objectWriter

// BlobStore writes objects to a configured GCS bucket.
type BlobStore struct {
	open   writerFunc
	bucket string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return newWithWriter(func(ctx context.Context, bucket, object, contentType string) objectWriter {
		obj := client.Bucket(bucket).Object(object).If(storage.Conditions{DoesNotExist: true})
		w := obj.NewWriter(ctx)
		w.ContentType = contentType
		return w
	}, cfg)
}

func newWithWriter(open writerFunc, cfg Config) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{open: open, bucket: cfg.Bucket}, nil
}

// PutObject uploads r to path and returns a gs:// URI. Objects are
// write-once; the object only becomes visible once the writer closes cleanly.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	writer := s.open(ctx, s.bucket, path, contentType)
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}
