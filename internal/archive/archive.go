// Package archive copies uploaded invoice PDFs to S3-compatible object
// storage. Archiving is best effort: callers log failures and carry on.
package archive

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wizqueue/internal/config"
)

const pdfContentType = "application/pdf"

// Archiver stores a copy of an invoice file and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, invoiceID int64, filePath string) (string, error)
}

// New returns a MinIO archiver when archiving is enabled and a no-op
// archiver otherwise.
func New(cfg config.Archive) (Archiver, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewMinio(cfg)
}

// Noop discards archive requests.
type Noop struct{}

// Archive implements Archiver.
func (Noop) Archive(context.Context, int64, string) (string, error) {
	return "", nil
}

// Minio archives to a MinIO (or any S3-compatible) bucket.
type Minio struct {
	client *minio.Client
	bucket string

	mu          sync.Mutex
	bucketReady bool
}

// NewMinio builds the client. No network call is made until the first
// archive request.
func NewMinio(cfg config.Archive) (*Minio, error) {
	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the target bucket name.
func (m *Minio) Bucket() string {
	return m.bucket
}

// EnsureBucket creates the bucket if it doesn't exist.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bucketReady {
		return nil
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	m.bucketReady = true
	return nil
}

// Archive uploads filePath under invoices/<id>/<filename>.
func (m *Minio) Archive(ctx context.Context, invoiceID int64, filePath string) (string, error) {
	if err := m.EnsureBucket(ctx); err != nil {
		return "", err
	}
	object := ObjectName(invoiceID, filePath)
	_, err := m.client.FPutObject(ctx, m.bucket, object, filePath, minio.PutObjectOptions{
		ContentType: pdfContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return object, nil
}

// ObjectName is the key used for an invoice file.
func ObjectName(invoiceID int64, filePath string) string {
	return path.Join("invoices", strconv.FormatInt(invoiceID, 10), filepath.Base(filePath))
}

// splitEndpoint accepts host:port or a URL and reports whether TLS is used.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(endpoint, "/"), useSSL
	}
}
