// Package credstore owns the per-tenant Slack tokens: an in-memory map that
// is read on every private-file request and persisted as a flat registry so
// installed workspaces survive restarts.
package credstore

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"molrelay/internal/model"
)

// ErrNotFound is returned by Lookup when the tenant never installed the app.
var ErrNotFound = errors.New("tenant credential not found")

// Store holds the tenant→token mapping. Reads are lock-free apart from the
// RWMutex read path; persistence writes are serialized separately so a
// shutdown flush never races a registration's background save.
type Store struct {
	mu    sync.RWMutex
	creds map[string]string

	persistMu sync.Mutex
	persister Persister

	log *zap.Logger
}

// New creates an empty store; call LoadAll before serving traffic.
func New(p Persister, log *zap.Logger) *Store {
	return &Store{
		creds:     make(map[string]string),
		persister: p,
		log:       log,
	}
}

// LoadAll populates the mapping from the persisted registry. A registry that
// does not exist yet is a first run, not an error.
func (s *Store) LoadAll(ctx context.Context) error {
	m, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = m
	s.mu.Unlock()
	s.log.Info("tenant registry loaded", zap.Int("tenants", len(m)))
	return nil
}

// Lookup returns the credential for a tenant or ErrNotFound.
func (s *Store) Lookup(tenantID string) (model.Credential, error) {
	s.mu.RLock()
	token, ok := s.creds[tenantID]
	s.mu.RUnlock()
	if !ok {
		return model.Credential{}, ErrNotFound
	}
	return model.Credential{TenantID: tenantID, Token: token}, nil
}

// Register inserts or replaces a tenant's token. The in-memory mapping is
// updated synchronously; persistence happens in the background because a
// failed write must not fail the install flow that is waiting on us.
func (s *Store) Register(ctx context.Context, tenantID, token string) {
	s.mu.Lock()
	s.creds[tenantID] = token
	s.mu.Unlock()

	// The save outlives the request that triggered it, and request contexts
	// are recycled once the handler returns, so it runs on a fresh context.
	go func() {
		if err := s.save(context.Background()); err != nil {
			s.log.Error("tenant registry persist failed",
				zap.String("tenant", tenantID), zap.Error(err))
		}
	}()
}

// FlushAll durably writes the full mapping and blocks until done. Called on
// graceful shutdown before the process is allowed to exit.
func (s *Store) FlushAll(ctx context.Context) error {
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string]string, len(s.creds))
	for k, v := range s.creds {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	return s.persister.Save(ctx, snapshot)
}
