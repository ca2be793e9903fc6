package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// AccountRecord is the persisted state for one voice-platform user.
// EmailProvider and PhoneNumber start empty and are filled in as the user
// supplies them across invocations.
type AccountRecord struct {
	UserID        string
	EmailProvider string
	PhoneNumber   string
}

// MailLinkRecord holds the mailbox credentials linked to a phone number.
// It is created by the OAuth callback and its access token is rotated by the
// pipeline's refresh path.
type MailLinkRecord struct {
	PhoneNumber  string
	Email        string
	AccessToken  string
	TokenExpiry  time.Time
	RefreshToken string
}

// HasToken reports whether the link carries an access token. A link without
// a token means the user received the SMS but never finished the OAuth hop.
func (r *MailLinkRecord) HasToken() bool {
	return r != nil && r.AccessToken != ""
}

// AccountStore is the persistence boundary for account records.
type AccountStore interface {
	// GetAccount returns the account for the platform user id, or ErrNotFound.
	GetAccount(ctx context.Context, userID string) (*AccountRecord, error)

	// CreateAccount inserts a bare account record for the user id.
	CreateAccount(ctx context.Context, userID string) error

	// SetEmailProvider updates the email provider field of an existing account.
	SetEmailProvider(ctx context.Context, userID, provider string) error

	// SetPhoneNumber updates the phone number field of an existing account.
	SetPhoneNumber(ctx context.Context, userID, phone string) error
}

// MailLinkStore is the persistence boundary for mail-link records.
type MailLinkStore interface {
	// GetMailLink returns the mail link for the phone number, or ErrNotFound.
	GetMailLink(ctx context.Context, phone string) (*MailLinkRecord, error)

	// UpsertMailLink creates or replaces the mail link for its phone number.
	UpsertMailLink(ctx context.Context, link *MailLinkRecord) error

	// SetAccessToken updates the access token and expiry of an existing link.
	SetAccessToken(ctx context.Context, phone, token string, expiry time.Time) error
}
