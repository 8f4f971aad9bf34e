package credstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"

	"molrelay/internal/config"
)

// Persister reads and writes the durable tenant registry.
type Persister interface {
	// Load returns the persisted mapping; a registry that does not exist yet
	// yields an empty map, not an error.
	Load(ctx context.Context) (map[string]string, error)
	// Save durably writes the full mapping, replacing the previous registry.
	Save(ctx context.Context, creds map[string]string) error
}

// The registry is one `tenantID,token` line per tenant. Tokens are assumed
// comma-free; the format matches already-persisted data and must not change.

func encodeRegistry(creds map[string]string) []byte {
	var b strings.Builder
	for id, token := range creds {
		b.WriteString(id)
		b.WriteString(",")
		b.WriteString(token)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func decodeRegistry(data []byte) map[string]string {
	creds := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		creds[parts[0]] = parts[1]
	}
	return creds
}

// filePersister keeps the registry in a single file next to the service.
type filePersister struct {
	fs   afero.Fs
	path string
}

// NewFilePersister persists the registry to a local file.
func NewFilePersister(fs afero.Fs, path string) Persister {
	return &filePersister{fs: fs, path: path}
}

func (f *filePersister) Load(ctx context.Context) (map[string]string, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tenant registry: %w", err)
	}
	return decodeRegistry(data), nil
}

func (f *filePersister) Save(ctx context.Context, creds map[string]string) error {
	if err := afero.WriteFile(f.fs, f.path, encodeRegistry(creds), 0o600); err != nil {
		return fmt.Errorf("write tenant registry: %w", err)
	}
	return nil
}

// minioPersister keeps the registry as a single object so deployments with
// ephemeral disks (remote storage driver) still survive restarts.
type minioPersister struct {
	client *minio.Client
	bucket string
	object string
}

// NewMinIOPersister persists the registry to an object in the configured
// bucket under the given object name.
func NewMinIOPersister(cfg config.MinIOConfig, object string) (Persister, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &minioPersister{client: cli, bucket: cfg.Bucket, object: object}, nil
}

func (m *minioPersister) Load(ctx context.Context) (map[string]string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get tenant registry: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read tenant registry: %w", err)
	}
	return decodeRegistry(data), nil
}

func (m *minioPersister) Save(ctx context.Context, creds map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data := encodeRegistry(creds)
	_, err := m.client.PutObject(ctx, m.bucket, m.object,
		strings.NewReader(string(data)), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return fmt.Errorf("put tenant registry: %w", err)
	}
	return nil
}
