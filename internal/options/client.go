package options

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ClientConfig configures the HTTP chain provider.
type ClientConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"5s"`
	RatePerSecond  float64       `yaml:"rate_per_second" default:"5"`
	RateBurst      int           `yaml:"rate_burst" default:"10"`
}

// Client fetches chain summaries over HTTP behind a circuit breaker and a
// client-side rate limit, so a flapping provider degrades options-dependent
// detectors instead of stalling the whole scan.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewClient builds a chain provider client.
func NewClient(cfg ClientConfig) *Client {
	settings := gobreaker.Settings{
		Name:    "options-chain",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("options provider breaker state change")
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

// GetChainSummary implements Provider.
func (c *Client) GetChainSummary(ctx context.Context, symbol string) (*ChainSummary, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("chain summary for %s: %w", symbol, err)
	}
	return result.(*ChainSummary), nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (*ChainSummary, error) {
	endpoint := fmt.Sprintf("%s/v1/chains/%s/summary", c.cfg.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var summary ChainSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	summary.Symbol = symbol
	return &summary, nil
}
