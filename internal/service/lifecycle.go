// Package service contains the staged-file lifecycle manager: it classifies
// the submitted reference, resolves and validates private files, stages the
// bytes into the backing store, hands out viewer links, and reclaims staged
// copies past their retention window.
package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"molrelay/internal/model"
	"molrelay/internal/molecule"
	"molrelay/internal/reference"
	"molrelay/internal/resolver"
	"molrelay/internal/storage"
	"molrelay/internal/viewer"
)

// The three user-facing responses besides a viewer link. Fixed strings by
// design; no error detail crosses the response boundary.
const (
	MsgUnsupportedFiletype = "Sorry, that filetype is not supported."
	MsgNotAURL             = "Sorry, that is not a URL to a file."
	MsgFileNotFound        = "Sorry, that file could not be found. It may be on another Slack."
)

const (
	// retentionTTL is how long a staged file is served before a sweep may
	// reclaim it.
	retentionTTL = 24 * time.Hour
	// sweepPeriod is the number of staging events between sweeps. The full
	// listing is enumerated on each sweep, so the cost is amortized.
	sweepPeriod = 10
)

// CredentialSource supplies the tenant credential that authorizes private
// file resolution. Satisfied by *credstore.Store.
type CredentialSource interface {
	Lookup(tenantID string) (model.Credential, error)
}

// LinkService is the request-facing surface of the lifecycle manager. View
// always returns response text: a viewer link or one of the fixed errors.
type LinkService interface {
	View(ctx context.Context, tenantID, rawText string) string
}

type linkService struct {
	store    storage.Store
	creds    CredentialSource
	resolver resolver.Resolver
	client   *http.Client
	log      *zap.Logger
	metrics  *metrics

	// spawn runs deferred work off the request path; replaced in tests to
	// run synchronously.
	spawn func(func())
	now   func() time.Time

	mu         sync.Mutex
	sweepCount int
}

type metrics struct {
	filesStaged     prometheus.Counter
	stagingFailures prometheus.Counter
	sweepRuns       prometheus.Counter
	filesSwept      prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		filesStaged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "molrelay_files_staged_total",
			Help: "Molecule files staged into the backing store.",
		}),
		stagingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "molrelay_staging_failures_total",
			Help: "Deferred transfers that failed to stage.",
		}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "molrelay_sweep_runs_total",
			Help: "Reclaim sweeps executed.",
		}),
		filesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "molrelay_files_swept_total",
			Help: "Staged files deleted by reclaim sweeps.",
		}),
	}
	reg.MustRegister(m.filesStaged, m.stagingFailures, m.sweepRuns, m.filesSwept)
	return m
}

// NewLinkService constructs the lifecycle manager.
func NewLinkService(store storage.Store, creds CredentialSource, res resolver.Resolver,
	log *zap.Logger, reg prometheus.Registerer) LinkService {
	return &linkService{
		store:    store,
		creds:    creds,
		resolver: res,
		client:   &http.Client{Timeout: 5 * time.Minute},
		log:      log,
		metrics:  newMetrics(reg),
		spawn:    func(f func()) { go f() },
		now:      time.Now,
	}
}

// View maps the submitted text to response text. For private files the byte
// transfer is deferred until after the response is produced: the caller's
// protocol has a short timeout budget and must never wait on a download, so
// the returned link can briefly 404 while the transfer completes.
func (s *linkService) View(ctx context.Context, tenantID, rawText string) string {
	ref := reference.Classify(rawText)
	switch ref.Kind {
	case reference.PrivateRef:
		return s.viewPrivate(ctx, tenantID, ref.FileID)
	case reference.GenericURL:
		// Nothing to stage; the viewer fetches the URL itself.
		return viewer.BuildLink(ref.URL)
	default:
		return MsgNotAURL
	}
}

func (s *linkService) viewPrivate(ctx context.Context, tenantID, fileID string) string {
	cred, err := s.creds.Lookup(tenantID)
	if err != nil {
		s.log.Warn("no credential for tenant", zap.String("tenant", tenantID))
		return MsgFileNotFound
	}

	// Single attempt; not-found, unauthorized and transient failures all
	// read the same to the user.
	info, err := s.resolver.Resolve(ctx, cred.Token, fileID)
	if err != nil {
		s.log.Warn("file resolution failed",
			zap.String("tenant", tenantID), zap.String("file_id", fileID), zap.Error(err))
		return MsgFileNotFound
	}

	if !molecule.IsSupported(info.Name) {
		return MsgUnsupportedFiletype
	}

	// The millisecond prefix makes the name unique within the retention
	// window and is parsed back out at sweep time as the creation record.
	now := s.now()
	file := model.StagedFile{
		Name:      fmt.Sprintf("%d_%s", now.UnixMilli(), info.Name),
		Origin:    info.FetchURL,
		CreatedAt: now,
	}
	link := viewer.BuildLink(s.store.PublicURL(file.Name))

	token := cred.Token
	channel := info.ChannelID
	s.spawn(func() { s.afterResponse(file, channel, token) })

	return link
}

// afterResponse is the deferred tail of a private-file request: advance the
// sweep counter (possibly kicking off a sweep) and then run the transfer.
// It runs detached from the request; its failures are logged, never surfaced.
func (s *linkService) afterResponse(file model.StagedFile, channel, token string) {
	ctx := context.Background()
	s.maybeSweep(ctx)
	s.transfer(ctx, file, channel, token)
}

// maybeSweep advances the staging counter and fires a background sweep each
// time it wraps. The counter starts at zero on boot, so the first staging
// event after a restart also sweeps.
func (s *linkService) maybeSweep(ctx context.Context) {
	s.mu.Lock()
	due := s.sweepCount == 0
	s.sweepCount = (s.sweepCount + 1) % sweepPeriod
	s.mu.Unlock()

	if due {
		s.spawn(func() { s.sweep(ctx) })
	}
}

// sweep enumerates the backing store and deletes every entry older than the
// retention TTL. Per-entry failures are isolated; one bad entry never aborts
// the pass.
func (s *linkService) sweep(ctx context.Context) {
	s.log.Info("performing deletion sweep")
	s.metrics.sweepRuns.Inc()

	entries, err := s.store.ListAll(ctx)
	if err != nil {
		s.log.Error("sweep enumeration failed", zap.Error(err))
		return
	}

	now := s.now()
	for _, e := range entries {
		createdAt, ok := stagedCreationTime(e)
		if !ok {
			// Unrelated file sharing the namespace; leave it alone.
			continue
		}
		if now.Sub(createdAt) <= retentionTTL {
			continue
		}
		if err := s.store.Remove(ctx, e.Name); err != nil {
			s.log.Error("sweep delete failed", zap.String("name", e.Name), zap.Error(err))
			continue
		}
		s.metrics.filesSwept.Inc()
		s.log.Info("deleted staged file", zap.String("name", e.Name))
	}
}

// stagedCreationTime recovers an entry's creation time from the millisecond
// prefix of its name. An entry without a parsable prefix was not staged by
// us and is not ours to reclaim, whatever its age.
func stagedCreationTime(e storage.Entry) (time.Time, bool) {
	prefix, _, found := strings.Cut(e.Name, "_")
	if !found {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// transfer fetches the private file with the tenant's token and streams it
// into the backing store under the already-published staged name.
func (s *linkService) transfer(ctx context.Context, file model.StagedFile, channel, token string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Origin, nil)
	if err != nil {
		s.failStaging(file.Name, fmt.Errorf("build fetch request: %w", err))
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		s.failStaging(file.Name, fmt.Errorf("fetch %s: %w", file.Origin, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.failStaging(file.Name, fmt.Errorf("fetch %s: status %d", file.Origin, resp.StatusCode))
		return
	}

	if err := s.store.Stage(ctx, file.Name, resp.Body); err != nil {
		s.failStaging(file.Name, err)
		return
	}

	s.metrics.filesStaged.Inc()
	s.log.Info("staged molecule file",
		zap.String("name", file.Name), zap.String("channel", channel))
}

func (s *linkService) failStaging(staged string, err error) {
	s.metrics.stagingFailures.Inc()
	s.log.Error("staging failed", zap.String("name", staged), zap.Error(err))
}
