package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deiragold/spotfeed/internal/model"
)

// Client provides access to the spotfeed admin REST API.
type Client struct {
	baseURL    string
	adminID    string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. adminID scopes every request to
// one shop account.
func NewClient(baseURL, adminID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		adminID: adminID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// GetSpotRates fetches the commodity list and spread values.
func (c *Client) GetSpotRates(ctx context.Context) (*SpotRates, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/spot-rates/"+c.adminID)
	if err != nil {
		return nil, fmt.Errorf("get spot rates: %w", err)
	}

	var resp spotRatesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse spot rates: %w", err)
	}

	return &SpotRates{
		Commodities: resp.Info.Commodities,
		Spreads:     resp.Info.Spreads,
	}, nil
}

// GetServerURL fetches the quote feed endpoint.
func (c *Client) GetServerURL(ctx context.Context) (string, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/server-url")
	if err != nil {
		return "", fmt.Errorf("get server url: %w", err)
	}

	var resp serverURLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	return resp.Info.ServerURL, nil
}

// GetNews fetches the current news items.
func (c *Client) GetNews(ctx context.Context) ([]model.NewsItem, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/news/"+c.adminID)
	if err != nil {
		return nil, fmt.Errorf("get news: %w", err)
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse news: %w", err)
	}

	return resp.News.News, nil
}

// CheckEntitlement asks whether this screen may keep displaying rates.
// A 403 is an expected business outcome, not a fault: it returns
// allowed=false with a nil error. Every other failure is an error.
func (c *Client) CheckEntitlement(ctx context.Context) (bool, error) {
	_, err := c.doWithRetry(ctx, http.MethodGet, "/api/screens/"+c.adminID)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			c.logger.Info("screen limit exceeded", "admin_id", c.adminID)
			return false, nil
		}
		return false, fmt.Errorf("check entitlement: %w", err)
	}

	return true, nil
}
