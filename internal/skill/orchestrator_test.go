package skill

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelpal/parcelpal/internal/linking"
	"github.com/parcelpal/parcelpal/internal/shipments"
	"github.com/parcelpal/parcelpal/internal/store"
	"github.com/parcelpal/parcelpal/internal/tracking"
)

type fakeResolver struct {
	resolution *linking.Resolution
	err        error

	gotPhone    string
	gotProvider string
}

func (f *fakeResolver) Resolve(ctx context.Context, userID, phone, provider string) (*linking.Resolution, error) {
	f.gotPhone, f.gotProvider = phone, provider
	if f.err != nil {
		return nil, f.err
	}
	return f.resolution, nil
}

type fakeMiner struct {
	refs     []shipments.Reference
	refsErr  error
	statuses []*tracking.CarrierStatus

	collectCalls   int
	aggregateCalls int
	gotRetailer    string
	panicOnCollect bool
}

func (f *fakeMiner) CollectReferences(ctx context.Context, link *store.MailLinkRecord, retailer string) ([]shipments.Reference, error) {
	f.collectCalls++
	f.gotRetailer = retailer
	if f.panicOnCollect {
		panic("mailbox exploded")
	}
	return f.refs, f.refsErr
}

func (f *fakeMiner) Aggregate(ctx context.Context, refs []shipments.Reference) []*tracking.CarrierStatus {
	f.aggregateCalls++
	return f.statuses
}

func linkedResolution() *linking.Resolution {
	return &linking.Resolution{
		Action:  linking.Proceed,
		Account: &store.AccountRecord{UserID: "amzn1.ask.account.AAA", EmailProvider: "gmail", PhoneNumber: "5551234567"},
		Link: &store.MailLinkRecord{
			PhoneNumber: "5551234567",
			Email:       "user@example.com",
			AccessToken: "ya29.access",
		},
	}
}

func intentRequest(intent string, slots map[string]string) *RequestEnvelope {
	req := &RequestEnvelope{
		Version: "1.0",
		Session: Session{User: User{UserID: "amzn1.ask.account.AAA"}},
		Request: Request{
			Type:   TypeIntentRequest,
			Intent: Intent{Name: intent},
		},
	}
	if slots != nil {
		req.Request.Intent.Slots = map[string]Slot{}
		for name, value := range slots {
			req.Request.Intent.Slots[name] = Slot{Name: name, Value: value}
		}
	}
	return req
}

func ssml(resp *ResponseEnvelope) string {
	if resp.Response.OutputSpeech == nil {
		return ""
	}
	return resp.Response.OutputSpeech.SSML
}

func TestLaunchPromptsNewUser(t *testing.T) {
	resolver := &fakeResolver{resolution: &linking.Resolution{
		Action:  linking.PromptForProviderAndPhone,
		Account: &store.AccountRecord{UserID: "amzn1.ask.account.AAA"},
	}}
	o := NewOrchestrator(resolver, &fakeMiner{}, nil, nil)

	resp := o.Handle(t.Context(), &RequestEnvelope{
		Session: Session{User: User{UserID: "amzn1.ask.account.AAA"}},
		Request: Request{Type: TypeLaunchRequest},
	})

	assert.Equal(t, "<speak>"+msgPromptSetup+"</speak>", ssml(resp))
	require.NotNil(t, resp.Response.Card)
	assert.Equal(t, cardSetupTitle, resp.Response.Card.Title)
	assert.True(t, resp.Response.ShouldEndSession)
}

func TestSetupIntentPassesSlots(t *testing.T) {
	resolver := &fakeResolver{resolution: &linking.Resolution{
		Action:  linking.LinkSMSSent,
		Account: &store.AccountRecord{UserID: "amzn1.ask.account.AAA"},
	}}
	o := NewOrchestrator(resolver, &fakeMiner{}, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentSetProviderThenPhone, map[string]string{
		SlotEmailProvider: "google",
		SlotPhoneNumber:   "5551234567",
	}))

	assert.Equal(t, "google", resolver.gotProvider)
	assert.Equal(t, "5551234567", resolver.gotPhone)
	assert.Equal(t, "<speak>"+msgTextSent+"</speak>", ssml(resp))
}

func TestQueryWhileUnlinkedEndsWithTextSent(t *testing.T) {
	resolver := &fakeResolver{resolution: &linking.Resolution{
		Action:  linking.LinkSMSSent,
		Account: &store.AccountRecord{UserID: "amzn1.ask.account.AAA"},
	}}
	miner := &fakeMiner{}
	o := NewOrchestrator(resolver, miner, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentDeliveryDate, nil))

	assert.Equal(t, "<speak>"+msgTextSent+"</speak>", ssml(resp))
	assert.Zero(t, miner.collectCalls)
}

func TestDeliveryDateQuery(t *testing.T) {
	miner := &fakeMiner{
		refs: []shipments.Reference{{Carrier: "UPS", TrackingNumber: "1Z999AA1"}},
		statuses: []*tracking.CarrierStatus{{
			TrackingNumber: "1Z999AA1",
			Status:         tracking.StatusDelivered,
			LastEventDate:  "2024-03-01 10:00:00",
		}},
	}
	o := NewOrchestrator(&fakeResolver{resolution: linkedResolution()}, miner, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentDeliveryDate, nil))

	assert.Equal(t,
		`<speak>Your package was delivered on <say-as interpret-as="date">2024-03-01</say-as>.</speak>`,
		ssml(resp))
	assert.True(t, resp.Response.ShouldEndSession)
	assert.Equal(t, 1, miner.aggregateCalls)
}

func TestShippingSummaryQueryWithRetailer(t *testing.T) {
	miner := &fakeMiner{
		refs: []shipments.Reference{
			{Carrier: "UPS", TrackingNumber: "AAA"},
			{Carrier: "FedEx", TrackingNumber: "BBB"},
		},
		statuses: []*tracking.CarrierStatus{
			{Status: tracking.StatusInTransit},
			{Status: tracking.StatusDelivered},
		},
	}
	o := NewOrchestrator(&fakeResolver{resolution: linkedResolution()}, miner, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentShippingSummary, map[string]string{
		SlotRetailer: "Nordstrom",
	}))

	assert.Equal(t, "Nordstrom", miner.gotRetailer)
	assert.Equal(t, "<speak>You have 1 package from Nordstrom on the way.</speak>", ssml(resp))
}

func TestEmptyReferencesSkipAggregation(t *testing.T) {
	miner := &fakeMiner{}
	o := NewOrchestrator(&fakeResolver{resolution: linkedResolution()}, miner, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentPackageLocation, nil))

	assert.Equal(t,
		"<speak>Sorry, I couldn't find any location history for your most recent package.</speak>",
		ssml(resp))
	assert.Zero(t, miner.aggregateCalls)
}

func TestResolverFailureApologizes(t *testing.T) {
	o := NewOrchestrator(&fakeResolver{err: errors.New("db down")}, &fakeMiner{}, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentDeliveryDate, nil))

	assert.Equal(t, "<speak>"+msgApology+"</speak>", ssml(resp))
}

func TestMiningFailureApologizes(t *testing.T) {
	miner := &fakeMiner{refsErr: errors.New("second auth failure")}
	o := NewOrchestrator(&fakeResolver{resolution: linkedResolution()}, miner, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentShippingSummary, nil))

	assert.Equal(t, "<speak>"+msgApology+"</speak>", ssml(resp))
}

func TestPanicCollapsesToApology(t *testing.T) {
	miner := &fakeMiner{panicOnCollect: true}
	o := NewOrchestrator(&fakeResolver{resolution: linkedResolution()}, miner, nil, nil)

	resp := o.Handle(t.Context(), intentRequest(IntentDeliveryDate, nil))

	require.NotNil(t, resp)
	assert.Equal(t, "<speak>"+msgApology+"</speak>", ssml(resp))
}

func TestBuiltinIntents(t *testing.T) {
	o := NewOrchestrator(&fakeResolver{}, &fakeMiner{}, nil, nil)

	help := o.Handle(t.Context(), intentRequest(IntentHelp, nil))
	assert.False(t, help.Response.ShouldEndSession)
	require.NotNil(t, help.Response.Reprompt)

	stop := o.Handle(t.Context(), intentRequest(IntentStop, nil))
	assert.Equal(t, "<speak>"+msgStop+"</speak>", ssml(stop))
	assert.True(t, stop.Response.ShouldEndSession)

	ended := o.Handle(t.Context(), &RequestEnvelope{Request: Request{Type: TypeSessionEndedRequest}})
	assert.Nil(t, ended.Response.OutputSpeech)
}

func TestSlotValue(t *testing.T) {
	req := intentRequest(IntentDeliveryDate, map[string]string{SlotRetailer: "Nordstrom"})

	assert.Equal(t, "Nordstrom", req.SlotValue(SlotRetailer))
	assert.Empty(t, req.SlotValue(SlotPhoneNumber))
}
