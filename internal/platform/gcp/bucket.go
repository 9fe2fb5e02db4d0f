package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/hudai/ingest-backend/internal/pkg/logger"
)

// BucketService is the content-addressed archive writer. It has no dedup
// awareness of its own; callers probe the analytical store first. Uploads
// return the canonical gs:// URI of the written object.
type BucketService interface {
	UploadFile(ctx context.Context, bucket, object, localPath, contentType string) (string, error)
	UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
	DownloadToFile(ctx context.Context, bucket, object, localPath string) error
	DeleteObject(ctx context.Context, bucket, object string) error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	ctx := context.Background()
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &bucketService{log: serviceLog, storageClient: stClient}, nil
}

// ObjectURI builds the canonical gs:// URI for an object.
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// ParseURI splits a gs://bucket/object URI.
func ParseURI(uri string) (bucket, object string, err error) {
	const scheme = "gs://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("gcs uri must start with gs://: %q", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, object, found := strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid gcs uri: %q", uri)
	}
	return bucket, object, nil
}

func (bs *bucketService) UploadFile(ctx context.Context, bucket, object, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return ObjectURI(bucket, object), nil
}

func (bs *bucketService) UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return ObjectURI(bucket, object), nil
}

func (bs *bucketService) DownloadToFile(ctx context.Context, bucket, object, localPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	r, err := bs.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open GCS object %s: %w", ObjectURI(bucket, object), err)
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", ObjectURI(bucket, object), err)
	}
	return f.Close()
}

func (bs *bucketService) DeleteObject(ctx context.Context, bucket, object string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	o := bs.storageClient.Bucket(bucket).Object(object)
	if err := o.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", object, bucket, err)
	}
	return nil
}
