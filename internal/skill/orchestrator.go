package skill

import (
	"context"
	"log/slog"
	"time"

	"github.com/parcelpal/parcelpal/internal/instrumentation"
	"github.com/parcelpal/parcelpal/internal/linking"
	"github.com/parcelpal/parcelpal/internal/logging"
	"github.com/parcelpal/parcelpal/internal/shipments"
	"github.com/parcelpal/parcelpal/internal/store"
	"github.com/parcelpal/parcelpal/internal/tracking"
)

// LinkResolver is the slice of the linking resolver the orchestrator uses.
type LinkResolver interface {
	Resolve(ctx context.Context, userID, suppliedPhone, suppliedProvider string) (*linking.Resolution, error)
}

// Miner is the slice of the mining pipeline the orchestrator uses.
type Miner interface {
	CollectReferences(ctx context.Context, link *store.MailLinkRecord, retailer string) ([]shipments.Reference, error)
	Aggregate(ctx context.Context, refs []shipments.Reference) []*tracking.CarrierStatus
}

// Orchestrator routes decoded requests to intent handlers. Each invocation
// produces exactly one response.
type Orchestrator struct {
	resolver LinkResolver
	miner    Miner
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// NewOrchestrator creates the intent orchestrator.
func NewOrchestrator(resolver LinkResolver, miner Miner, logger *slog.Logger, metrics *instrumentation.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Orchestrator{
		resolver: resolver,
		miner:    miner,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handle processes one invocation. It never returns nil and never panics
// outward; any failure along the core path collapses into the apology
// response so the user is not left in silence.
func (o *Orchestrator) Handle(ctx context.Context, req *RequestEnvelope) (resp *ResponseEnvelope) {
	start := time.Now()
	intent := o.intentName(req)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("handler panic",
				logging.Intent(intent),
				slog.Any("panic", r))
			resp = Tell(msgApology)
		}
		status := instrumentation.StatusSuccess
		if resp != nil && resp.Response.OutputSpeech != nil && resp.Response.OutputSpeech.SSML == "<speak>"+msgApology+"</speak>" {
			status = instrumentation.StatusError
		}
		o.metrics.RecordIntent(ctx, intent, status, time.Since(start))
	}()

	switch req.Request.Type {
	case TypeSessionEndedRequest:
		return Empty()
	case TypeLaunchRequest:
		return o.handleSetup(ctx, req)
	}

	switch intent {
	case IntentHelp:
		return Ask(msgHelp, msgHelp)
	case IntentStop, IntentCancel:
		return Tell(msgStop)
	case IntentDeliveryDate:
		return o.handleQuery(ctx, req, shipments.DeliveryDate)
	case IntentShippingSummary:
		return o.handleQuery(ctx, req, shipments.ShippingSummary)
	case IntentPackageLocation:
		return o.handleQuery(ctx, req, shipments.LastLocation)
	case IntentSetProvider, IntentSetPhone, IntentSetProviderThenPhone, IntentSetPhoneThenProvider:
		return o.handleSetup(ctx, req)
	default:
		return Ask(msgHelp, msgHelp)
	}
}

func (o *Orchestrator) intentName(req *RequestEnvelope) string {
	if req.Request.Type == TypeIntentRequest {
		return req.Request.Intent.Name
	}
	return req.Request.Type
}

// resolveLink runs the linking state machine and, for anything short of a
// fully linked account, the response that ends the turn.
func (o *Orchestrator) resolveLink(ctx context.Context, req *RequestEnvelope) (*linking.Resolution, *ResponseEnvelope) {
	res, err := o.resolver.Resolve(ctx,
		req.Session.User.UserID,
		req.SlotValue(SlotPhoneNumber),
		req.SlotValue(SlotEmailProvider))
	if err != nil {
		o.logger.Error("link resolution failed",
			logging.UserHash(req.Session.User.UserID),
			logging.Err(err))
		return nil, Tell(msgApology)
	}

	switch res.Action {
	case linking.Proceed:
		return res, nil
	case linking.PromptForProviderAndPhone:
		return nil, TellWithCard(msgPromptSetup, cardSetupTitle, cardSetupBody)
	case linking.PromptForProvider:
		return nil, TellWithCard(msgPromptProvider, cardSetupTitle, cardSetupBody)
	case linking.PromptForPhone:
		return nil, TellWithCard(msgPromptPhone, cardSetupTitle, cardSetupBody)
	case linking.LinkSMSSent:
		return nil, Tell(msgTextSent)
	default:
		return nil, Tell(msgApology)
	}
}

// handleSetup serves the launch request and the explicit setup intents. Once
// linking completes these turn into the help prompt.
func (o *Orchestrator) handleSetup(ctx context.Context, req *RequestEnvelope) *ResponseEnvelope {
	res, resp := o.resolveLink(ctx, req)
	if resp != nil {
		return resp
	}

	o.logger.Info("account fully linked",
		logging.UserHash(res.Account.UserID))
	return Ask(msgHelp, msgHelp)
}

// handleQuery serves the three package-query intents with the shared
// pipeline, parameterized only by the answer strategy.
func (o *Orchestrator) handleQuery(ctx context.Context, req *RequestEnvelope, strategy shipments.Strategy) *ResponseEnvelope {
	res, resp := o.resolveLink(ctx, req)
	if resp != nil {
		return resp
	}

	retailer := req.SlotValue(SlotRetailer)

	refs, err := o.miner.CollectReferences(ctx, res.Link, retailer)
	if err != nil {
		o.logger.Error("mailbox mining failed",
			logging.UserHash(res.Account.UserID),
			logging.Err(err))
		return Tell(msgApology)
	}

	// No references means no tracking lookups at all
	if len(refs) == 0 {
		return Tell(shipments.NoPackagesAnswer(strategy, retailer))
	}

	statuses := o.miner.Aggregate(ctx, refs)
	return Tell(shipments.ComposeAnswer(strategy, statuses, retailer))
}
