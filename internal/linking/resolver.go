package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parcelpal/parcelpal/internal/instrumentation"
	"github.com/parcelpal/parcelpal/internal/logging"
	"github.com/parcelpal/parcelpal/internal/store"
)

// Action tells the caller how to respond to a not-yet-linked user, or that
// the request may proceed.
type Action int

const (
	// Proceed means the account is fully linked.
	Proceed Action = iota

	// PromptForProviderAndPhone asks a brand-new user for both slots.
	PromptForProviderAndPhone

	// PromptForProvider asks for the email provider.
	PromptForProvider

	// PromptForPhone asks for the phone number.
	PromptForPhone

	// LinkSMSSent means the user was texted an account-linking URL and
	// should be told to check their phone.
	LinkSMSSent
)

// String returns the action name used in logs and audit events.
func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case PromptForProviderAndPhone:
		return "prompt_provider_and_phone"
	case PromptForProvider:
		return "prompt_provider"
	case PromptForPhone:
		return "prompt_phone"
	case LinkSMSSent:
		return "link_sms_sent"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of one linking evaluation.
type Resolution struct {
	Action  Action
	Account *store.AccountRecord

	// Link is the mail-link record, populated only when Action is Proceed.
	Link *store.MailLinkRecord
}

// AuthURLBuilder produces the OAuth consent URL for a phone number.
type AuthURLBuilder interface {
	AuthURL(phone string) string
}

// Shortener shrinks a URL before it goes out by SMS.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// Messenger delivers a text message.
type Messenger interface {
	Send(ctx context.Context, phone, message string) error
}

// Resolver drives the account-linking state machine.
type Resolver struct {
	accounts  store.AccountStore
	links     store.MailLinkStore
	oauth     AuthURLBuilder
	shortener Shortener
	sms       Messenger

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// NewResolver creates a linking resolver.
func NewResolver(accounts store.AccountStore, links store.MailLinkStore, oauth AuthURLBuilder, shortener Shortener, sms Messenger, logger *slog.Logger, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Resolver{
		accounts:  accounts,
		links:     links,
		oauth:     oauth,
		shortener: shortener,
		sms:       sms,
		logger:    logger,
		metrics:   metrics,
		audit:     audit,
	}
}

// NormalizeProvider maps spoken provider names to the canonical mail-provider
// key. Users say "google" as often as "gmail".
func NormalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "google" {
		return "gmail"
	}
	return provider
}

// Resolve evaluates the linking state for one invocation. Supplied slots are
// persisted before any action is produced, so progress survives even when the
// turn ends in a prompt. Persistence failures propagate; SMS and shortener
// failures do not, the user is still told to check their phone.
func (r *Resolver) Resolve(ctx context.Context, userID, suppliedPhone, suppliedProvider string) (*Resolution, error) {
	event := instrumentation.NewLinkEvent(userID).WithSpanContext(ctx)

	resolution, err := r.resolve(ctx, userID, suppliedPhone, suppliedProvider)
	if err != nil {
		r.audit.LogLinkEvent(event.Complete(false, err))
		return nil, err
	}

	if resolution.Account != nil {
		event.WithPhone(resolution.Account.PhoneNumber)
	}
	if resolution.Link != nil {
		event.WithEmail(resolution.Link.Email)
	}
	r.audit.LogLinkEvent(event.WithAction(resolution.Action.String()).Complete(true, nil))

	return resolution, nil
}

func (r *Resolver) resolve(ctx context.Context, userID, suppliedPhone, suppliedProvider string) (*Resolution, error) {
	account, err := r.accounts.GetAccount(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		if err := r.accounts.CreateAccount(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		r.logger.Info("new account created", logging.UserHash(userID))
		return &Resolution{
			Action:  PromptForProviderAndPhone,
			Account: &store.AccountRecord{UserID: userID},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if account.EmailProvider == "" {
		return r.resolveMissingProvider(ctx, account, suppliedPhone, suppliedProvider)
	}
	if account.PhoneNumber == "" {
		return r.resolveMissingPhone(ctx, account, suppliedPhone)
	}

	link, err := r.links.GetMailLink(ctx, account.PhoneNumber)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load mail link: %w", err)
	}
	if !link.HasToken() {
		// Covers both "never linked" and "started but never finished the
		// OAuth hop": either way the user gets a fresh link.
		r.sendLinkSMS(ctx, account.PhoneNumber)
		return &Resolution{Action: LinkSMSSent, Account: account}, nil
	}

	return &Resolution{Action: Proceed, Account: account, Link: link}, nil
}

func (r *Resolver) resolveMissingProvider(ctx context.Context, account *store.AccountRecord, suppliedPhone, suppliedProvider string) (*Resolution, error) {
	if suppliedProvider == "" {
		return &Resolution{Action: PromptForProvider, Account: account}, nil
	}

	provider := NormalizeProvider(suppliedProvider)
	if err := r.accounts.SetEmailProvider(ctx, account.UserID, provider); err != nil {
		return nil, fmt.Errorf("failed to persist email provider: %w", err)
	}
	account.EmailProvider = provider

	if suppliedPhone == "" {
		return &Resolution{Action: PromptForPhone, Account: account}, nil
	}
	return r.persistPhoneAndSendLink(ctx, account, suppliedPhone)
}

func (r *Resolver) resolveMissingPhone(ctx context.Context, account *store.AccountRecord, suppliedPhone string) (*Resolution, error) {
	if suppliedPhone == "" {
		return &Resolution{Action: PromptForPhone, Account: account}, nil
	}
	return r.persistPhoneAndSendLink(ctx, account, suppliedPhone)
}

func (r *Resolver) persistPhoneAndSendLink(ctx context.Context, account *store.AccountRecord, phone string) (*Resolution, error) {
	if err := r.accounts.SetPhoneNumber(ctx, account.UserID, phone); err != nil {
		return nil, fmt.Errorf("failed to persist phone number: %w", err)
	}
	account.PhoneNumber = phone

	r.sendLinkSMS(ctx, phone)
	return &Resolution{Action: LinkSMSSent, Account: account}, nil
}

// sendLinkSMS shortens the consent URL and texts it. Failures are logged and
// counted but never fail the turn; the resolver's answer stays "check your
// phone" either way.
func (r *Resolver) sendLinkSMS(ctx context.Context, phone string) {
	url := r.oauth.AuthURL(phone)

	short, err := r.shortener.Shorten(ctx, url)
	if err != nil {
		r.metrics.RecordLinkSMS(ctx, instrumentation.StatusError)
		r.logger.Error("failed to shorten link URL",
			logging.PhoneHash(phone),
			logging.Err(err))
		return
	}

	if err := r.sms.Send(ctx, phone, short); err != nil {
		r.metrics.RecordLinkSMS(ctx, instrumentation.StatusError)
		r.logger.Error("failed to send link SMS",
			logging.PhoneHash(phone),
			logging.Err(err))
		return
	}

	r.metrics.RecordLinkSMS(ctx, instrumentation.StatusSuccess)
	r.logger.Info("link SMS sent", logging.PhoneHash(phone))
}
