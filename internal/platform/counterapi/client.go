// Package counterapi is the REST client for the counter service's /total
// resource.
package counterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/go-resty/resty/v2"
)

// TotalResponse is the body of GET /total.
type TotalResponse struct {
	Total int64 `json:"total"`
}

// AddResponse is the body of a successful POST /total.
type AddResponse struct {
	Message string `json:"message"`
	Total   int64  `json:"total"`
}

type addRequest struct {
	Value int64 `json:"value"`
}

// Client talks to a counter service.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client for the service rooted at baseURL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Client{http: rc}
}

// Total reads the current total.
func (c *Client) Total(ctx context.Context) (int64, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/total")
	if err != nil {
		return 0, fmt.Errorf("counterapi: get total: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("counterapi: get total: %w: HTTP %d", domain.ErrUpstream, resp.StatusCode())
	}

	var out TotalResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, fmt.Errorf("counterapi: decode total: %w", err)
	}
	return out.Total, nil
}

// Add adds value to the total and returns the service's reply.
func (c *Client) Add(ctx context.Context, value int64) (AddResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(addRequest{Value: value}).
		Post("/total")
	if err != nil {
		return AddResponse{}, fmt.Errorf("counterapi: add %d: %w", value, err)
	}
	if !resp.IsSuccess() {
		return AddResponse{}, fmt.Errorf("counterapi: add %d: %w: HTTP %d", value, domain.ErrUpstream, resp.StatusCode())
	}

	var out AddResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return AddResponse{}, fmt.Errorf("counterapi: decode add: %w", err)
	}
	return out, nil
}
