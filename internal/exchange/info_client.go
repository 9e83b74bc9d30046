package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// InfoClient queries the public Hyperliquid info endpoint. Requests carry
// no credentials; the endpoint serves market data only.
type InfoClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// InfoClientOption configures InfoClient.
type InfoClientOption func(*InfoClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) InfoClientOption {
	return func(c *InfoClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) InfoClientOption {
	return func(c *InfoClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) InfoClientOption {
	return func(c *InfoClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) InfoClientOption {
	return func(c *InfoClient) {
		c.client = client
	}
}

// WithEndpoint overrides the info URL, mainly for tests.
func WithEndpoint(url string) InfoClientOption {
	return func(c *InfoClient) {
		c.endpoint = url
	}
}

// NewInfoClient creates a client for the mainnet or testnet info endpoint.
func NewInfoClient(testnet bool, opts ...InfoClientOption) *InfoClient {
	c := &InfoClient{
		endpoint:    NewEndpoints(testnet).Info,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post performs one info request with retries and exponential backoff.
func (c *InfoClient) post(ctx context.Context, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// AllMids returns the current mid price for every listed asset. The venue
// serializes prices as strings; unparsable entries are skipped.
func (c *InfoClient) AllMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	if err := c.post(ctx, map[string]any{"type": "allMids"}, &raw); err != nil {
		return nil, err
	}
	mids := make(map[string]float64, len(raw))
	for asset, value := range raw {
		if price, err := strconv.ParseFloat(value, 64); err == nil {
			mids[asset] = price
		}
	}
	return mids, nil
}

var _ PriceSource = (*InfoClient)(nil)

// assetInfo is one entry of the meta universe.
type assetInfo struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
}

type metaResponse struct {
	Universe []assetInfo `json:"universe"`
}

// MarketInfo returns instrument metadata for one asset from the venue
// universe.
func (c *InfoClient) MarketInfo(ctx context.Context, asset string) (MarketInfo, error) {
	var meta metaResponse
	if err := c.post(ctx, map[string]any{"type": "meta"}, &meta); err != nil {
		return MarketInfo{}, err
	}
	for _, info := range meta.Universe {
		if info.Name == asset {
			minSize := 1.0
			for i := 0; i < info.SzDecimals; i++ {
				minSize /= 10
			}
			return MarketInfo{
				Symbol:         info.Name,
				BaseAsset:      info.Name,
				QuoteAsset:     "USD",
				MinOrderSize:   minSize,
				PricePrecision: 2,
				SizePrecision:  info.SzDecimals,
				IsActive:       true,
			}, nil
		}
	}
	return MarketInfo{}, ErrAssetNotFound
}

// HealthCheck reports whether the info endpoint answers a meta request.
func (c *InfoClient) HealthCheck(ctx context.Context) bool {
	var meta metaResponse
	return c.post(ctx, map[string]any{"type": "meta"}, &meta) == nil
}
