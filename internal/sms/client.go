package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// SMSError represents an error from an SMS gateway operation.
type SMSError struct {
	// Op is the operation that failed (e.g., "send", "normalize")
	Op string

	// PhoneNumber is the destination, already normalized when available
	PhoneNumber string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *SMSError) Error() string {
	if e.PhoneNumber != "" {
		return fmt.Sprintf("sms %s (to: %s): %v", e.Op, e.PhoneNumber, e.Err)
	}
	return fmt.Sprintf("sms %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *SMSError) Unwrap() error {
	return e.Err
}

// Client publishes text messages through an SMS gateway's REST API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates an SMS client for the given gateway endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Normalize converts a spoken phone number to E.164. Bare ten-digit numbers
// get the +1 country code; an eleven-digit number starting with 1 is treated
// the same. Anything else is rejected.
func Normalize(phone string) (string, error) {
	if strings.HasPrefix(phone, "+") {
		return phone, nil
	}

	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	switch d := digits.String(); {
	case len(d) == 10:
		return "+1" + d, nil
	case len(d) == 11 && d[0] == '1':
		return "+" + d, nil
	default:
		return "", &SMSError{
			Op:  "normalize",
			Err: fmt.Errorf("cannot normalize %q to E.164", phone),
		}
	}
}

type sendRequest struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number"`
}

// Send delivers a text message to the given phone number.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	if message == "" {
		return &SMSError{Op: "send", Err: fmt.Errorf("message cannot be empty")}
	}

	to, err := Normalize(phone)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{Message: message, PhoneNumber: to})
	if err != nil {
		return &SMSError{Op: "send", PhoneNumber: to, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &SMSError{Op: "send", PhoneNumber: to, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SMSError{Op: "send", PhoneNumber: to, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &SMSError{
			Op:          "send",
			PhoneNumber: to,
			Err:         fmt.Errorf("gateway returned status %d", resp.StatusCode),
		}
	}
	return nil
}
