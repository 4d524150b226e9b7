// internal/upload/client.go
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// SignedURLTTL bounds how long a private object stays reachable after
// upload. The backend copies the PDF during processing, so an hour is
// plenty.
const SignedURLTTL = time.Hour

// Bucket is the slice of object storage the upload client needs.
type Bucket interface {
	Write(ctx context.Context, object string, r io.Reader, contentType string) error
	SignedURL(object string, expires time.Duration) (string, error)
	PublicURL(object string) string
}

// GCSBucket implements Bucket over a Cloud Storage bucket.
type GCSBucket struct {
	name   string
	handle *storage.BucketHandle
}

func NewGCSBucket(ctx context.Context, name string, opts ...option.ClientOption) (*GCSBucket, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBucket{name: name, handle: client.Bucket(name)}, nil
}

func (b *GCSBucket) Write(ctx context.Context, object string, r io.Reader, contentType string) error {
	w := b.handle.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", object, err)
	}
	return nil
}

func (b *GCSBucket) SignedURL(object string, expires time.Duration) (string, error) {
	return b.handle.SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	})
}

func (b *GCSBucket) PublicURL(object string) string {
	return "https://storage.googleapis.com/" + b.name + "/" + object
}

// Client uploads PDFs for job creation and resolves URLs the backend
// can fetch them from.
type Client struct {
	bucket Bucket
	public bool
	logger *slog.Logger
}

// NewClient wraps a bucket. public selects plain object URLs over V4
// signed ones; use it only when the bucket allows anonymous reads.
func NewClient(bucket Bucket, public bool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{bucket: bucket, public: public, logger: logger}
}

// UploadPDF streams the file into the bucket under a collision-free
// object name and returns the storage path.
func (c *Client) UploadPDF(ctx context.Context, r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	object := fmt.Sprintf("uploads/%s_%d%s", uuid.NewString(), time.Now().UnixMilli(), ext)

	if err := c.bucket.Write(ctx, object, r, "application/pdf"); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	c.logger.Info("uploaded pdf", "object", object, "filename", filename)
	return object, nil
}

// ResolveURL returns an externally reachable URL for an uploaded
// object: the public URL when the bucket is world-readable, a
// time-bounded signed URL otherwise.
func (c *Client) ResolveURL(object string) (string, error) {
	if c.public {
		return c.bucket.PublicURL(object), nil
	}
	url, err := c.bucket.SignedURL(object, SignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", object, err)
	}
	return url, nil
}
