// Package storage provides domain.BlobStore implementations: a Cloud Storage
// bucket and a local directory.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS writes objects to one Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

func NewGCS(ctx context.Context, bucket string, logger *slog.Logger, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket name is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCS{client: client, bucket: bucket, logger: logger.With("component", "gcs", "bucket", bucket)}, nil
}

func (g *GCS) Close() error { return g.client.Close() }

// URI returns the gs:// URI of name in the bucket.
func (g *GCS) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, name)
}

func (g *GCS) Put(ctx context.Context, name string, data []byte, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", g.URI(name), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", g.URI(name), err)
	}
	g.logger.Info("object written", "object", name, "bytes", len(data), "content_type", contentType)
	return nil
}
