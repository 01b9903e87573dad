package livecoinwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coinboard-api/pkg/market"
)

const (
	defaultBaseURL          = "https://api.livecoinwatch.com"
	defaultCurrency         = "USD"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond

	coinsListPath   = "/coins/list"
	coinHistoryPath = "/coins/single/history"
)

// ErrRateLimited indicates the provider rejected the call with HTTP 429.
// Retrying within the same cycle is pointless; callers should abandon the
// cycle and let the next tick try again.
var ErrRateLimited = errors.New("livecoinwatch: rate limited")

// Client wraps access to the LiveCoinWatch REST endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
	maxRetries int
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithCurrency overrides the quote currency (defaults to USD).
func WithCurrency(currency string) Option {
	return func(c *Client) {
		if currency != "" {
			c.currency = currency
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs a LiveCoinWatch API client. The API key is mandatory:
// an empty key is a configuration error, not a degraded mode.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("livecoinwatch: api key is required")
	}
	client := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		currency:   defaultCurrency,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client, nil
}

// ListCoins fetches the top limit coins ordered by rank ascending.
func (c *Client) ListCoins(ctx context.Context, limit int) ([]market.Quote, error) {
	if limit <= 0 {
		limit = 100
	}
	req := coinsListRequest{
		Currency: c.currency,
		Sort:     "rank",
		Order:    "ascending",
		Offset:   0,
		Limit:    limit,
		Meta:     true,
	}
	var entries []coinListEntry
	if err := c.doRequest(ctx, coinsListPath, req, &entries); err != nil {
		return nil, err
	}

	quotes := make([]market.Quote, 0, len(entries))
	for _, entry := range entries {
		quote := market.Quote{
			Code: strings.TrimSpace(entry.Code),
			Name: strings.TrimSpace(entry.Name),
			Cap:  entry.Cap,
			Delta: market.DeltaSet{
				Hour:    entry.Delta.Hour,
				Day:     entry.Delta.Day,
				Week:    entry.Delta.Week,
				Month:   entry.Delta.Month,
				Quarter: entry.Delta.Quarter,
				Year:    entry.Delta.Year,
			},
			TotalSupply:       entry.TotalSupply,
			CirculatingSupply: entry.CirculatingSupply,
			MaxSupply:         entry.MaxSupply,
		}
		if entry.Rate != nil {
			quote.Rate = *entry.Rate
		}
		if entry.Volume != nil {
			quote.Volume = *entry.Volume
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// History fetches the rate series for one coin over [start, end].
func (c *Client) History(ctx context.Context, code string, start, end time.Time) ([]market.HistoryPoint, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.New("livecoinwatch: code is required")
	}
	req := historyRequest{
		Currency: c.currency,
		Code:     code,
		Start:    start.UnixMilli(),
		End:      end.UnixMilli(),
		Meta:     false,
	}
	var resp historyResponse
	if err := c.doRequest(ctx, coinHistoryPath, req, &resp); err != nil {
		return nil, err
	}

	points := make([]market.HistoryPoint, 0, len(resp.History))
	for _, entry := range resp.History {
		if entry.Rate == nil || entry.Date <= 0 {
			continue
		}
		points = append(points, market.HistoryPoint{Date: entry.Date, Rate: *entry.Rate})
	}
	return points, nil
}

// doRequest posts payload to path and decodes the response into result,
// retrying transient failures with doubling backoff. A 429 is surfaced as
// ErrRateLimited without retrying.
func (c *Client) doRequest(ctx context.Context, path string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("livecoinwatch: encode request: %w", err)
	}
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("livecoinwatch: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("livecoinwatch: read response: %w", readErr)
			case resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(respBody)))
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = fmt.Errorf("livecoinwatch: http status %d: %s", resp.StatusCode, string(respBody))
			default:
				if result != nil {
					if err := json.Unmarshal(respBody, result); err != nil {
						return fmt.Errorf("livecoinwatch: decode response: %w", err)
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return errors.New("livecoinwatch: request failed without error detail")
}
