package livecoinwatch

import (
	"context"
	"net/http"
	"time"

	"coinboard-api/pkg/market"
)

const defaultProviderTimeout = 8 * time.Second

// Provider wraps LiveCoinWatch client calls behind the generic market.Provider contract.
type Provider struct {
	client  *Client
	timeout time.Duration
}

type providerConfig struct {
	timeout       time.Duration
	clientOptions []Option
}

// ProviderOption customises the LiveCoinWatch provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOptions = append(cfg.clientOptions, options...)
	}
}

// NewProvider constructs a LiveCoinWatch market provider. The API key is
// required; construction fails without it.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	cfg := &providerConfig{
		timeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := NewClient(apiKey, cfg.clientOptions...)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client:  client,
		timeout: cfg.timeout,
	}, nil
}

func init() {
	market.RegisterProvider("livecoinwatch", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Currency != "" {
			clientOptions = append(clientOptions, WithCurrency(cfg.Currency))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		if len(clientOptions) > 0 {
			opts = append(opts, WithClientOptions(clientOptions...))
		}
		return NewProvider(cfg.APIKey, opts...)
	})
}

// ListQuotes implements market.Provider.
func (p *Provider) ListQuotes(ctx context.Context, limit int) ([]market.Quote, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.ListCoins(ctx, limit)
}

// History implements market.Provider.
func (p *Provider) History(ctx context.Context, code string, start, end time.Time) ([]market.HistoryPoint, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.History(ctx, code, start, end)
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}
