package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/oops"
)

// Client fetches single facts from a JSON HTTP endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a facts API client. A zero timeout leaves the request unbounded.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// Endpoint returns the URL the client queries
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch requests one fact.
// A non-200 status yields ErrUnexpectedStatus and a body without a string
// "fact" field yields ErrMissingFact; transport and decode failures are
// returned as is.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", oops.With("endpoint", c.endpoint, "context", "failed to build request").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", oops.With("endpoint", c.endpoint, "context", "request failed").Wrap(err)
	}
	defer resp.Body.Close()

	slog.Debug("Facts API response", "status_code", resp.StatusCode, "url", resp.Request.URL.String())

	if resp.StatusCode != http.StatusOK {
		return "", oops.With("endpoint", c.endpoint, "status_code", resp.StatusCode).Wrap(apperrors.ErrUnexpectedStatus)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", oops.With("endpoint", c.endpoint, "context", "failed to decode response").Wrap(err)
	}

	fact, ok := body["fact"].(string)
	if !ok {
		return "", oops.With("endpoint", c.endpoint, "body", body).Wrap(apperrors.ErrMissingFact)
	}

	return fact, nil
}
