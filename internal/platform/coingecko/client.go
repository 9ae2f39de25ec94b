// Package coingecko is the REST client for the CoinGecko market data API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches market snapshots from CoinGecko. Retries are disabled: a
// failed request is reported and the next poll tries again.
type Client struct {
	http       *resty.Client
	vsCurrency string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends the demo API key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.SetHeader("x-cg-demo-api-key", key)
		}
	}
}

// WithVsCurrency sets the quote currency (default "usd").
func WithVsCurrency(currency string) Option {
	return func(c *Client) {
		if currency != "" {
			c.vsCurrency = currency
		}
	}
}

// NewClient creates a Client for the given API root, e.g.
// "https://api.coingecko.com/api/v3".
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Cache-Control", "no-store")

	c := &Client{http: rc, vsCurrency: "usd"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Markets returns the first page of coins ordered by market cap, perPage
// records long.
func (c *Client) Markets(ctx context.Context, perPage int) ([]domain.Coin, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency":             c.vsCurrency,
			"order":                   "market_cap_desc",
			"per_page":                strconv.Itoa(perPage),
			"page":                    "1",
			"sparkline":               "false",
			"price_change_percentage": "24h",
		}).
		Get("/coins/markets")
	if err != nil {
		return nil, fmt.Errorf("coingecko: markets: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode()); err != nil {
		return nil, fmt.Errorf("coingecko: markets: %w", err)
	}

	var apiCoins []APICoin
	if err := json.Unmarshal(resp.Body(), &apiCoins); err != nil {
		return nil, fmt.Errorf("coingecko: decode markets: %w", err)
	}

	coins := make([]domain.Coin, 0, len(apiCoins))
	for i := range apiCoins {
		coins = append(coins, apiCoins[i].ToDomainCoin())
	}
	return coins, nil
}

// checkHTTPStatus maps a non-2xx status code to a domain error whose text
// carries the status code.
func checkHTTPStatus(statusCode int) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", domain.ErrNotFound, statusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", domain.ErrRateLimited, statusCode)
	default:
		return fmt.Errorf("%w: HTTP %d", domain.ErrUpstream, statusCode)
	}
}
