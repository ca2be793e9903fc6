package shipments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/parcelpal/parcelpal/internal/store"
	"github.com/parcelpal/parcelpal/internal/tracking"
)

type fakeMailbox struct {
	mu sync.Mutex

	validToken string
	ids        []string
	bodies     map[string]string
	structural map[string]bool

	listCalls int
	getCalls  int
}

func (f *fakeMailbox) checkToken(token string) error {
	if token != f.validToken {
		return fmt.Errorf("mailbox: %w", &googleapi.Error{Code: 401, Message: "Invalid Credentials"})
	}
	return nil
}

func (f *fakeMailbox) ListMessageIDs(ctx context.Context, token, query string) ([]string, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	if err := f.checkToken(token); err != nil {
		return nil, err
	}
	return f.ids, nil
}

func (f *fakeMailbox) FetchBody(ctx context.Context, token, id string) (string, bool, error) {
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()

	if err := f.checkToken(token); err != nil {
		return "", false, err
	}
	return f.bodies[id], f.structural[id], nil
}

type fakeTracker struct {
	mu       sync.Mutex
	statuses map[string]*tracking.CarrierStatus
	failing  map[string]bool
	lookups  int
}

func (f *fakeTracker) Lookup(ctx context.Context, carrier, trackingNumber string) (*tracking.CarrierStatus, error) {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()

	if f.failing[trackingNumber] {
		return nil, errors.New("tracking service unavailable")
	}
	status, ok := f.statuses[trackingNumber]
	if !ok {
		return &tracking.CarrierStatus{TrackingNumber: trackingNumber, Status: tracking.StatusUnknown}, nil
	}
	return status, nil
}

type fakeRefresher struct {
	token   string
	err     error
	calls   int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	f.calls++
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.token, time.Now().Add(time.Hour), nil
}

type fakeLinks struct {
	mu         sync.Mutex
	savedToken string
	savedPhone string
	saveErr    error
}

func (f *fakeLinks) GetMailLink(ctx context.Context, phone string) (*store.MailLinkRecord, error) {
	return nil, store.ErrNotFound
}

func (f *fakeLinks) UpsertMailLink(ctx context.Context, link *store.MailLinkRecord) error {
	return nil
}

func (f *fakeLinks) SetAccessToken(ctx context.Context, phone, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedPhone, f.savedToken = phone, token
	return nil
}

func testLink() *store.MailLinkRecord {
	return &store.MailLinkRecord{
		PhoneNumber:  "5551234567",
		Email:        "user@example.com",
		AccessToken:  "ya29.valid",
		RefreshToken: "1//refresh",
	}
}

func TestCollectReferencesScenario(t *testing.T) {
	// Three messages: two parse to the same tracking number, one has no
	// marker. Expect a single deduplicated reference.
	mb := &fakeMailbox{
		validToken: "ya29.valid",
		ids:        []string{"m1", "m2", "m3"},
		bodies: map[string]string{
			"m1": "order shipped\nUPS\nTracking:1Z999AA1<br>",
			"m2": "package update\nUPS\nTracking:1Z999AA1<br>",
			"m3": "thanks for your order, no tracking yet",
		},
		structural: map[string]bool{"m1": true, "m2": true, "m3": true},
	}
	tracker := &fakeTracker{
		statuses: map[string]*tracking.CarrierStatus{
			"1Z999AA1": {
				TrackingNumber:       "1Z999AA1",
				Status:               tracking.StatusInTransit,
				EstimatedDeliveryEnd: "2024-03-06 00:00:00",
			},
		},
	}
	p := NewPipeline(mb, tracker, &fakeRefresher{}, &fakeLinks{}, nil, nil)

	refs, err := p.CollectReferences(t.Context(), testLink(), "")
	require.NoError(t, err)
	require.Equal(t, []Reference{{Carrier: "UPS", TrackingNumber: "1Z999AA1"}}, refs)

	statuses := p.Aggregate(t.Context(), refs)
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, tracker.lookups)

	answer := ComposeAnswer(DeliveryDate, statuses, "")
	assert.Equal(t, `Your package will arrive on <say-as interpret-as="date">2024-03-06</say-as>.`, answer)
}

func TestCollectReferencesStructuralFilter(t *testing.T) {
	mb := &fakeMailbox{
		validToken: "ya29.valid",
		ids:        []string{"m1", "m2"},
		bodies: map[string]string{
			"m1": "UPS\nTracking:AAA111<br>",
			"m2": "UPS\nTracking:BBB222<br>",
		},
		// m2 does not expose the expected MIME shape
		structural: map[string]bool{"m1": true},
	}
	p := NewPipeline(mb, &fakeTracker{}, &fakeRefresher{}, &fakeLinks{}, nil, nil)

	refs, err := p.CollectReferences(t.Context(), testLink(), "")
	require.NoError(t, err)
	assert.Equal(t, []Reference{{Carrier: "UPS", TrackingNumber: "AAA111"}}, refs)
}

func TestCollectReferencesRetailerFilter(t *testing.T) {
	mb := &fakeMailbox{
		validToken: "ya29.valid",
		ids:        []string{"m1", "m2"},
		bodies: map[string]string{
			"m1": "Nordstrom order\nUPS\nTracking:AAA111<br>",
			"m2": "Target order\nFedEx\nTracking:BBB222<br>",
		},
		structural: map[string]bool{"m1": true, "m2": true},
	}
	p := NewPipeline(mb, &fakeTracker{}, &fakeRefresher{}, &fakeLinks{}, nil, nil)

	refs, err := p.CollectReferences(t.Context(), testLink(), "Nordstrom")
	require.NoError(t, err)
	assert.Equal(t, []Reference{{Carrier: "UPS", TrackingNumber: "AAA111"}}, refs)
}

func TestCollectReferencesEmptyMailbox(t *testing.T) {
	mb := &fakeMailbox{validToken: "ya29.valid"}
	p := NewPipeline(mb, &fakeTracker{}, &fakeRefresher{}, &fakeLinks{}, nil, nil)

	refs, err := p.CollectReferences(t.Context(), testLink(), "")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Zero(t, mb.getCalls)
}

func TestRefreshAndRetryOnce(t *testing.T) {
	// The stored access token is stale. The first list call fails with an
	// auth error, the pipeline refreshes, persists the new token, and the
	// retried call succeeds.
	mb := &fakeMailbox{
		validToken: "ya29.fresh",
		ids:        []string{"m1"},
		bodies:     map[string]string{"m1": "UPS\nTracking:AAA111<br>"},
		structural: map[string]bool{"m1": true},
	}
	refresher := &fakeRefresher{token: "ya29.fresh"}
	links := &fakeLinks{}
	p := NewPipeline(mb, &fakeTracker{}, refresher, links, nil, nil)

	link := testLink()
	link.AccessToken = "ya29.stale"

	refs, err := p.CollectReferences(t.Context(), link, "")
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, "ya29.fresh", links.savedToken)
	assert.Equal(t, "5551234567", links.savedPhone)
	assert.Equal(t, 2, mb.listCalls)
}

func TestRefreshFailureIsFatal(t *testing.T) {
	mb := &fakeMailbox{validToken: "ya29.fresh"}
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	p := NewPipeline(mb, &fakeTracker{}, refresher, &fakeLinks{}, nil, nil)

	link := testLink()
	link.AccessToken = "ya29.stale"

	_, err := p.CollectReferences(t.Context(), link, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh access token")
}

func TestSecondAuthFailureIsFatal(t *testing.T) {
	// Even the refreshed token is rejected; the retried fetch's auth error
	// propagates instead of triggering another refresh.
	mb := &fakeMailbox{validToken: "ya29.never-issued"}
	refresher := &fakeRefresher{token: "ya29.still-bad"}
	p := NewPipeline(mb, &fakeTracker{}, refresher, &fakeLinks{}, nil, nil)

	link := testLink()
	link.AccessToken = "ya29.stale"

	_, err := p.CollectReferences(t.Context(), link, "")
	require.Error(t, err)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 2, mb.listCalls)
}

func TestPersistFailureAfterRefreshIsFatal(t *testing.T) {
	mb := &fakeMailbox{validToken: "ya29.fresh"}
	links := &fakeLinks{saveErr: errors.New("disk full")}
	p := NewPipeline(mb, &fakeTracker{}, &fakeRefresher{token: "ya29.fresh"}, links, nil, nil)

	link := testLink()
	link.AccessToken = "ya29.stale"

	_, err := p.CollectReferences(t.Context(), link, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist refreshed token")
}

func TestAggregatePartialFailure(t *testing.T) {
	tracker := &fakeTracker{
		statuses: map[string]*tracking.CarrierStatus{
			"AAA": {TrackingNumber: "AAA", Status: tracking.StatusInTransit},
			"CCC": {TrackingNumber: "CCC", Status: tracking.StatusDelivered},
		},
		failing: map[string]bool{"BBB": true},
	}
	p := NewPipeline(&fakeMailbox{}, tracker, &fakeRefresher{}, &fakeLinks{}, nil, nil)

	statuses := p.Aggregate(t.Context(), []Reference{
		{Carrier: "UPS", TrackingNumber: "AAA"},
		{Carrier: "FedEx", TrackingNumber: "BBB"},
		{Carrier: "USPS", TrackingNumber: "CCC"},
	})

	// The failing lookup drops only its own entry and order is preserved
	require.Len(t, statuses, 2)
	assert.Equal(t, "AAA", statuses[0].TrackingNumber)
	assert.Equal(t, "CCC", statuses[1].TrackingNumber)
	assert.Equal(t, 3, tracker.lookups)
}

func TestAggregateEmptyRefs(t *testing.T) {
	tracker := &fakeTracker{}
	p := NewPipeline(&fakeMailbox{}, tracker, &fakeRefresher{}, &fakeLinks{}, nil, nil)

	assert.Empty(t, p.Aggregate(t.Context(), nil))
	assert.Zero(t, tracker.lookups)
}
