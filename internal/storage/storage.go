// Package storage provides the backing store for staged molecule files:
// a uniform put/list/delete surface over either a local directory or an
// S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	"molrelay/internal/config"
)

// Entry describes one staged object as seen by a listing. LastModified may
// lag a concurrently completing Stage under the remote driver; callers must
// not assume the listing is synchronously consistent.
type Entry struct {
	Name         string
	LastModified time.Time
}

// Store is the backing store contract. Stage is safe to call concurrently
// with distinct names; overwriting an existing name is undefined behavior
// (staged names are timestamp-unique, so it is never exercised).
type Store interface {
	// Stage writes the reader's bytes under name.
	Stage(ctx context.Context, name string, r io.Reader) error
	// PublicURL builds the externally fetchable URL for a staged name.
	// Deterministic, no network call; the object may not exist yet.
	PublicURL(name string) string
	// ListAll enumerates currently staged entries.
	ListAll(ctx context.Context) ([]Entry, error)
	// Remove deletes a staged entry. Absence of the target is not an error.
	Remove(ctx context.Context, name string) error
}

// New selects a Store implementation from configuration.
func New(cfg *config.AppConfig) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverLocal, "":
		return NewLocal(afero.NewOsFs(), cfg.Storage.LocalDir, cfg.AppURL)
	case config.DriverMinIO:
		return NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
