// Package bridge implements the Bridge payment-provider gateway: an
// authenticated REST client plus the normalization boundary that converts
// vendor JSON into the internal provider event shapes.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/easner-transaction-sync/internal/domain/provider"
	"github.com/easner-transaction-sync/internal/gateway"
)

// Client is an authenticated Bridge API client implementing provider.Gateway
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	retryAttempts int
	retryBackoff  time.Duration
	logger        *slog.Logger
}

// APIError is a non-2xx response from the provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge api returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new Bridge API client
func NewClient(logger *slog.Logger, cfg *config.BridgeConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryAttempts: cfg.RetryAttempts,
		retryBackoff:  cfg.RetryBackoff,
		logger:        logger,
	}
}

var _ provider.Gateway = (*Client)(nil)

// doGet performs an authenticated GET with bounded retry. Transient failures
// (network errors, 5xx) are retried; 4xx responses are permanent.
func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	return gateway.Retry(ctx, c.retryAttempts, c.retryBackoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return gateway.Permanent(fmt.Errorf("failed to build request for %s: %w", path, err))
		}
		req.Header.Set("Api-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request to %s failed: %w", path, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response from %s: %w", path, err)
		}

		if resp.StatusCode >= 500 {
			return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		if resp.StatusCode != http.StatusOK {
			return gateway.Permanent(&APIError{StatusCode: resp.StatusCode, Body: string(body)})
		}

		if err := json.Unmarshal(body, out); err != nil {
			return gateway.Permanent(fmt.Errorf("failed to decode response from %s: %w", path, err))
		}
		return nil
	})
}

// ListActivity returns the normalized activity feed of one virtual account.
// Records that fail normalization are skipped and logged, not fatal: one
// malformed record must not block the rest of the feed.
func (c *Client) ListActivity(ctx context.Context, customerID, accountID string) ([]provider.Event, error) {
	path := fmt.Sprintf("/v0/customers/%s/virtual_accounts/%s/history",
		url.PathEscape(customerID), url.PathEscape(accountID))

	var resp listResponse
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list virtual account activity: %w", err)
	}

	events := make([]provider.Event, 0, len(resp.Data))
	for _, raw := range resp.Data {
		event, err := normalizeActivity(raw)
		if err != nil {
			c.logger.Warn("Skipping malformed activity record",
				"customer_id", customerID,
				"account_id", accountID,
				"error", err,
			)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// ListDrains returns the normalized drain history of one liquidation address
func (c *Client) ListDrains(ctx context.Context, customerID, liquidationAddressID string) ([]provider.Drain, error) {
	path := fmt.Sprintf("/v0/customers/%s/liquidation_addresses/%s/drains",
		url.PathEscape(customerID), url.PathEscape(liquidationAddressID))

	var resp listResponse
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list liquidation address drains: %w", err)
	}

	drains := make([]provider.Drain, 0, len(resp.Data))
	for _, raw := range resp.Data {
		drain, err := normalizeDrain(raw)
		if err != nil {
			c.logger.Warn("Skipping malformed drain record",
				"customer_id", customerID,
				"liquidation_address_id", liquidationAddressID,
				"error", err,
			)
			continue
		}
		drains = append(drains, drain)
	}
	return drains, nil
}

// ListTransfers returns the customer's normalized outbound transfer history
func (c *Client) ListTransfers(ctx context.Context, customerID string) ([]provider.Transfer, error) {
	path := "/v0/transfers?customer_id=" + url.QueryEscape(customerID)

	var resp listResponse
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	transfers := make([]provider.Transfer, 0, len(resp.Data))
	for _, raw := range resp.Data {
		transfer, err := normalizeTransfer(raw)
		if err != nil {
			c.logger.Warn("Skipping malformed transfer record",
				"customer_id", customerID,
				"error", err,
			)
			continue
		}
		transfers = append(transfers, transfer)
	}
	return transfers, nil
}
