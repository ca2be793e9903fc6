package mailbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// MaxSearchResults caps how many message ids a single search returns.
const MaxSearchResults = 250

// Client talks to the Gmail API on behalf of whichever user's access token
// it is handed per call.
type Client struct {
	// endpoint overrides the Gmail API base URL in tests.
	endpoint string
}

// NewClient creates a Gmail mailbox client.
func NewClient() *Client {
	return &Client{}
}

func (c *Client) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		})),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// ListMessageIDs searches the user's mailbox and returns matching message ids,
// newest first, up to MaxSearchResults.
func (c *Client) ListMessageIDs(ctx context.Context, accessToken, query string) ([]string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	res, err := svc.Users.Messages.List("me").
		Q(query).
		MaxResults(MaxSearchResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage fetches one message in full format, payload included.
func (c *Client) GetMessage(ctx context.Context, accessToken, id string) (*gmail.Message, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return msg, nil
}

// FetchBody fetches one message and returns its decoded first-part body.
// ok is false for messages that do not match the expected MIME shape.
func (c *Client) FetchBody(ctx context.Context, accessToken, id string) (body string, ok bool, err error) {
	msg, err := c.GetMessage(ctx, accessToken, id)
	if err != nil {
		return "", false, err
	}
	body, ok = DecodedBody(msg)
	return body, ok, nil
}

// DecodedBody returns the decoded text of the message's first MIME part.
// Messages without a multipart payload, or whose first part carries no inline
// data, are skipped entirely; ok reports whether the message qualifies.
func DecodedBody(msg *gmail.Message) (body string, ok bool) {
	if msg == nil || msg.Payload == nil || len(msg.Payload.Parts) == 0 {
		return "", false
	}

	part := msg.Payload.Parts[0]
	if part.Body == nil || part.Body.Data == "" {
		return "", false
	}

	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// IsAuthError reports whether the Gmail API rejected the request with a
// client error, which almost always means the access token has expired. The
// caller reacts by refreshing the token and retrying once.
func IsAuthError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500
}
