// Package receipts stores the photos users send so a transaction extracted
// from an image can be checked against the original later.
package receipts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Archive stores one receipt image and returns its URI.
type Archive interface {
	Store(ctx context.Context, image []byte, mimeType string, at time.Time) (string, error)
}

// ObjectName lays receipts out by calendar day: receipts/YYYY/MM/DD/<id><ext>.
func ObjectName(at time.Time, id, mimeType string) string {
	return path.Join("receipts", at.Format("2006/01/02"), id+extension(mimeType))
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// GCS archives receipts in a Cloud Storage bucket.
type GCS struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// NewGCS creates a GCS archive using Application Default Credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, timeout: 2 * time.Minute}, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Store implements Archive.
func (g *GCS) Store(ctx context.Context, image []byte, mimeType string, at time.Time) (string, error) {
	name := ObjectName(at, uuid.New().String(), mimeType)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := io.Copy(w, bytes.NewReader(image)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("GCS.Store: copy to writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("GCS.Store: finalize upload: %w", err)
	}

	return "gs://" + g.bucket + "/" + name, nil
}

var _ Archive = (*GCS)(nil)
