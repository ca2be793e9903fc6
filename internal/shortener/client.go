package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a URL-shortening service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a shortener client for the given service endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type shortenRequest struct {
	LongURL string `json:"longUrl"`
}

type shortenResponse struct {
	ID      string `json:"id"`
	LongURL string `json:"longUrl"`
}

// Shorten returns a short URL redirecting to longURL.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	if longURL == "" {
		return "", fmt.Errorf("longURL cannot be empty")
	}

	body, err := json.Marshal(shortenRequest{LongURL: longURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode shorten request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create shorten request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to shorten URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener returned status %d", resp.StatusCode)
	}

	var shortened shortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&shortened); err != nil {
		return "", fmt.Errorf("failed to decode shorten response: %w", err)
	}
	if shortened.ID == "" {
		return "", fmt.Errorf("shortener returned no id")
	}
	return shortened.ID, nil
}
