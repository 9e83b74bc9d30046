// Package leaderboard pulls the venue leaderboard and recomputes each
// wallet's realized and net PnL from its fills and funding history.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const clientUserAgent = "hl-top-profit/0.1"

// InfoAPIClient posts one info request and returns the decoded JSON body.
type InfoAPIClient interface {
	Post(ctx context.Context, body any) (json.RawMessage, error)
}

// HTTPInfoClient is the production InfoAPIClient. Failed requests retry up
// to five times with a linearly growing delay.
type HTTPInfoClient struct {
	client *http.Client
	apiURL string
}

// NewHTTPInfoClient creates a client for the given info URL.
func NewHTTPInfoClient(apiURL string) *HTTPInfoClient {
	return &HTTPInfoClient{
		client: &http.Client{Timeout: 30 * time.Second},
		apiURL: apiURL,
	}
}

// Post implements InfoAPIClient.
func (c *HTTPInfoClient) Post(ctx context.Context, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", clientUserAgent)

		resp, err := c.client.Do(req)
		if err == nil {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return respBody, nil
			}
			if readErr != nil {
				lastErr = fmt.Errorf("read response: %w", readErr)
			} else {
				lastErr = fmt.Errorf("http %d", resp.StatusCode)
			}
		} else {
			lastErr = err
		}

		delay := time.Duration(200+100*attempt) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("request failed: %w", lastErr)
}
