package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"molrelay/internal/config"
)

// minioStore implements Store on an S3-compatible backend (MinIO, AWS S3,
// etc.). It is safe for concurrent use by multiple goroutines. Staged bytes
// stream straight through to the bucket; no local intermediate copy is kept.
type minioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIO creates the object-store driver. It validates connectivity and
// ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig) (Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("minio public url is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStore{
		client:    cli,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

// key places staged objects under their own prefix. The bucket also holds
// unrelated objects (the tenant registry); only keys under this prefix are
// ever listed or deleted by this store.
func (m *minioStore) key(name string) string {
	return MountPoint + "/" + name
}

// Stage uploads with unknown size (-1) so arbitrary molecule files stream
// without buffering to disk first.
func (m *minioStore) Stage(ctx context.Context, name string, r io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.key(name), r, -1, minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// PublicURL joins the configured public base with the object key. The
// object may still be uploading when this URL is handed out.
func (m *minioStore) PublicURL(name string) string {
	return m.publicURL + "/" + m.key(name)
}

func (m *minioStore) ListAll(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	opts := minio.ListObjectsOptions{Prefix: MountPoint + "/"}
	for obj := range m.client.ListObjects(ctx, m.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		entries = append(entries, Entry{
			Name:         strings.TrimPrefix(obj.Key, MountPoint+"/"),
			LastModified: obj.LastModified,
		})
	}
	return entries, nil
}

func (m *minioStore) Remove(ctx context.Context, name string) error {
	// RemoveObject succeeds when the target is already gone.
	if err := m.client.RemoveObject(ctx, m.bucket, m.key(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
