package shipments

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parcelpal/parcelpal/internal/instrumentation"
	"github.com/parcelpal/parcelpal/internal/logging"
	"github.com/parcelpal/parcelpal/internal/mailbox"
	"github.com/parcelpal/parcelpal/internal/store"
	"github.com/parcelpal/parcelpal/internal/tracking"
)

// defaultConcurrency bounds both fan-outs (message fetches and tracking
// lookups) within one invocation.
const defaultConcurrency = 8

// Mailbox is the slice of the mailbox client the pipeline consumes.
type Mailbox interface {
	ListMessageIDs(ctx context.Context, accessToken, query string) ([]string, error)
	FetchBody(ctx context.Context, accessToken, id string) (body string, ok bool, err error)
}

// Tracker resolves one reference to a carrier status.
type Tracker interface {
	Lookup(ctx context.Context, carrier, trackingNumber string) (*tracking.CarrierStatus, error)
}

// Refresher trades a refresh token for a fresh access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiry time.Time, err error)
}

// Pipeline mines a linked mailbox for tracking references and resolves them
// against the carrier-tracking service. One Pipeline serves all users; all
// per-invocation state lives in arguments and locals.
type Pipeline struct {
	mailbox   Mailbox
	tracker   Tracker
	refresher Refresher
	links     store.MailLinkStore

	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	concurrency int
}

// NewPipeline creates a mining pipeline.
func NewPipeline(mb Mailbox, tracker Tracker, refresher Refresher, links store.MailLinkStore, logger *slog.Logger, metrics *instrumentation.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Pipeline{
		mailbox:     mb,
		tracker:     tracker,
		refresher:   refresher,
		links:       links,
		logger:      logger,
		metrics:     metrics,
		concurrency: defaultConcurrency,
	}
}

// tokenSession carries the access token through one invocation. Concurrent
// message fetches can hit an expired token at the same time; the session
// makes sure only the first failure triggers the refresh round trip and that
// it happens at most once per invocation.
type tokenSession struct {
	p    *Pipeline
	link *store.MailLinkRecord

	mu        sync.Mutex
	token     string
	refreshed bool
}

func (s *tokenSession) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// refreshFrom swaps the stale token for a fresh one. Callers whose token is
// already outdated just pick up the replacement; the actual refresh happens
// once, and a failed refresh is fatal for the invocation.
func (s *tokenSession) refreshFrom(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != stale {
		return s.token, nil
	}
	if s.refreshed {
		return "", fmt.Errorf("access token rejected after refresh")
	}
	s.refreshed = true

	token, expiry, err := s.p.refresher.Refresh(ctx, s.link.RefreshToken)
	if err != nil {
		s.p.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	if err := s.p.links.SetAccessToken(ctx, s.link.PhoneNumber, token, expiry); err != nil {
		s.p.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	s.p.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
	s.p.logger.Info("access token refreshed",
		logging.PhoneHash(s.link.PhoneNumber))

	s.token = token
	return token, nil
}

// do runs one mailbox fetch, refreshing the token and retrying exactly once
// when the mailbox rejects the credentials.
func (s *tokenSession) do(ctx context.Context, fetch func(token string) error) error {
	token := s.current()

	err := fetch(token)
	if err == nil || !mailbox.IsAuthError(err) {
		return err
	}

	fresh, refreshErr := s.refreshFrom(ctx, token)
	if refreshErr != nil {
		return refreshErr
	}
	return fetch(fresh)
}

// CollectReferences searches the linked mailbox, parses every qualifying
// email body, and returns the deduplicated references in mailbox order
// (newest first). An empty result means no shipment emails matched.
func (p *Pipeline) CollectReferences(ctx context.Context, link *store.MailLinkRecord, retailer string) ([]Reference, error) {
	session := &tokenSession{p: p, link: link, token: link.AccessToken}

	var ids []string
	err := session.do(ctx, func(token string) error {
		var listErr error
		ids, listErr = p.mailbox.ListMessageIDs(ctx, token, "")
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mailbox messages: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Fetch bodies concurrently but keep mailbox order; the answer
	// strategies treat the first reference as the most recent package.
	bodies := make([]string, len(ids))
	parsed := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			return session.do(gctx, func(token string) error {
				body, ok, fetchErr := p.mailbox.FetchBody(gctx, token, id)
				if fetchErr != nil {
					return fetchErr
				}
				bodies[i], parsed[i] = body, ok
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch message bodies: %w", err)
	}

	refs := make([]Reference, 0, len(ids))
	for i := range bodies {
		if !parsed[i] {
			continue
		}
		if ref, ok := Extract(bodies[i], retailer); ok {
			refs = append(refs, ref)
		}
	}
	return Dedupe(refs), nil
}

// Aggregate resolves each reference against the tracking service, fanning
// the lookups out concurrently. A failed lookup drops only that entry; the
// returned statuses keep the order of refs.
func (p *Pipeline) Aggregate(ctx context.Context, refs []Reference) []*tracking.CarrierStatus {
	if len(refs) == 0 {
		return nil
	}

	results := make([]*tracking.CarrierStatus, len(refs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			start := time.Now()
			status, err := p.tracker.Lookup(ctx, ref.Carrier, ref.TrackingNumber)
			if err != nil {
				p.metrics.RecordTrackingLookup(ctx, ref.Carrier, instrumentation.StatusError)
				p.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceTracking, "lookup", instrumentation.StatusError, time.Since(start))
				p.logger.Warn("tracking lookup failed",
					logging.Carrier(ref.Carrier),
					logging.Err(err))
				return nil
			}

			p.metrics.RecordTrackingLookup(ctx, ref.Carrier, instrumentation.StatusSuccess)
			p.metrics.RecordUpstreamOperation(ctx, instrumentation.ServiceTracking, "lookup", instrumentation.StatusSuccess, time.Since(start))
			results[i] = status
			return nil
		})
	}
	g.Wait()

	statuses := make([]*tracking.CarrierStatus, 0, len(refs))
	for _, status := range results {
		if status != nil {
			statuses = append(statuses, status)
		}
	}
	return statuses
}
