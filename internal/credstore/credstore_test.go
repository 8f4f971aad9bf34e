package credstore

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingPersister never finishes a Save until released, to prove the
// request path does not wait on persistence.
type blockingPersister struct {
	release chan struct{}
	saved   chan map[string]string
}

func (b *blockingPersister) Load(ctx context.Context) (map[string]string, error) {
	return make(map[string]string), nil
}

func (b *blockingPersister) Save(ctx context.Context, creds map[string]string) error {
	<-b.release
	b.saved <- creds
	return nil
}

func TestRegisterThenLookupBeforePersist(t *testing.T) {
	p := &blockingPersister{release: make(chan struct{}), saved: make(chan map[string]string, 1)}
	s := New(p, zap.NewNop())

	s.Register(context.Background(), "T123", "xoxb-secret")

	cred, err := s.Lookup("T123")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-secret", cred.Token)
	assert.Equal(t, "T123", cred.TenantID)

	close(p.release)
	select {
	case saved := <-p.saved:
		assert.Equal(t, map[string]string{"T123": "xoxb-secret"}, saved)
	case <-time.After(time.Second):
		t.Fatal("background persist never ran")
	}
}

type ctxCapturePersister struct {
	saved chan context.Context
}

func (p *ctxCapturePersister) Load(ctx context.Context) (map[string]string, error) {
	return make(map[string]string), nil
}

func (p *ctxCapturePersister) Save(ctx context.Context, creds map[string]string) error {
	p.saved <- ctx
	return nil
}

type requestKey struct{}

func TestRegisterSaveDetachedFromRequestContext(t *testing.T) {
	p := &ctxCapturePersister{saved: make(chan context.Context, 1)}
	s := New(p, zap.NewNop())

	// Request contexts are recycled after the handler returns; the
	// background save must not carry anything request-scoped.
	reqCtx, cancel := context.WithCancel(
		context.WithValue(context.Background(), requestKey{}, "request-scoped"))
	s.Register(reqCtx, "T1", "xoxb-secret")
	cancel()

	select {
	case saveCtx := <-p.saved:
		assert.NoError(t, saveCtx.Err())
		assert.Nil(t, saveCtx.Value(requestKey{}))
	case <-time.After(time.Second):
		t.Fatal("background persist never ran")
	}
}

func TestLookupUnknownTenant(t *testing.T) {
	s := New(NewFilePersister(afero.NewMemMapFs(), "/tenants.csv"), zap.NewNop())
	_, err := s.Lookup("TNOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterReplacesToken(t *testing.T) {
	s := New(NewFilePersister(afero.NewMemMapFs(), "/tenants.csv"), zap.NewNop())
	ctx := context.Background()

	s.Register(ctx, "T1", "old-token")
	s.Register(ctx, "T1", "new-token")

	cred, err := s.Lookup("T1")
	require.NoError(t, err)
	assert.Equal(t, "new-token", cred.Token)
}

func TestFlushThenLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	s := New(NewFilePersister(fs, "/tenants.csv"), zap.NewNop())
	s.Register(ctx, "T1", "token-one")
	s.Register(ctx, "T2", "token-two")
	require.NoError(t, s.FlushAll(ctx))

	// Simulated restart: a fresh store over the same file.
	s2 := New(NewFilePersister(fs, "/tenants.csv"), zap.NewNop())
	require.NoError(t, s2.LoadAll(ctx))

	for id, want := range map[string]string{"T1": "token-one", "T2": "token-two"} {
		cred, err := s2.Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, want, cred.Token)
	}
}

func TestLoadAllFirstRun(t *testing.T) {
	s := New(NewFilePersister(afero.NewMemMapFs(), "/does/not/exist.csv"), zap.NewNop())
	// Absence of the registry is a first run, not an error.
	require.NoError(t, s.LoadAll(context.Background()))
}

func TestRegistryFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewFilePersister(fs, "/tenants.csv")
	require.NoError(t, p.Save(context.Background(), map[string]string{
		"T1": "xoxb-1",
		"T2": "xoxb-2",
	}))

	data, err := afero.ReadFile(fs, "/tenants.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	sort.Strings(lines)
	assert.Equal(t, []string{"T1,xoxb-1", "T2,xoxb-2"}, lines)
}

func TestDecodeRegistrySkipsGarbage(t *testing.T) {
	creds := decodeRegistry([]byte("T1,xoxb-1\n\nnot-a-record\nT2,xoxb-2\n"))
	assert.Equal(t, map[string]string{"T1": "xoxb-1", "T2": "xoxb-2"}, creds)
}

func TestDecodeRegistryCommaInToken(t *testing.T) {
	// Tokens are assumed comma-free, but a stray comma must not drop the
	// whole record; everything after the first comma is the token.
	creds := decodeRegistry([]byte("T1,left,right\n"))
	assert.Equal(t, map[string]string{"T1": "left,right"}, creds)
}
