package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// MountPoint is the URL path under which the local molecule directory is
// served by the HTTP layer.
const MountPoint = "molecules"

// localStore keeps staged files in a directory on an afero filesystem and
// relies on the HTTP layer's static mount to make them publicly fetchable.
type localStore struct {
	fs      afero.Fs
	dir     string
	baseURL string
}

// NewLocal creates the directory-backed store, creating the directory if it
// does not exist yet.
func NewLocal(fs afero.Fs, dir, baseURL string) (Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create molecule directory: %w", err)
	}
	return &localStore{fs: fs, dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *localStore) Stage(ctx context.Context, name string, r io.Reader) error {
	f, err := l.fs.Create(filepath.Join(l.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func (l *localStore) PublicURL(name string) string {
	return l.baseURL + "/" + MountPoint + "/" + name
}

func (l *localStore) ListAll(ctx context.Context) ([]Entry, error) {
	infos, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return nil, fmt.Errorf("read molecule directory: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		entries = append(entries, Entry{Name: fi.Name(), LastModified: fi.ModTime()})
	}
	return entries, nil
}

func (l *localStore) Remove(ctx context.Context, name string) error {
	err := l.fs.Remove(filepath.Join(l.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
