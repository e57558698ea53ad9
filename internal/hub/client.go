// Package hub implements the outbound link to the coordinating Hub.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AdminKeyHeader authenticates outbound notifications at the Hub.
const AdminKeyHeader = "X-Hub-Admin-Key"

// Notification is the stock-change payload posted to the Hub.
type Notification struct {
	TenantID string `json:"tenant_id"`
	RemoteID string `json:"remote_id"`
	NewStock int64  `json:"new_stock"`
}

// Client posts JSON payloads to the Hub with a short per-request timeout.
type Client struct {
	baseURL  string
	adminKey string
	timeout  time.Duration
	hc       *http.Client
}

// NewClient builds a Client for the given Hub endpoint.
func NewClient(baseURL, adminKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		adminKey: adminKey,
		timeout:  timeout,
		hc:       &http.Client{Timeout: timeout},
	}
}

// PostStock delivers one stock notification. The response body is never
// consumed; a non-success status is reported as an error for the caller
// to log and discard.
func (c *Client) PostStock(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.adminKey != "" {
		req.Header.Set(AdminKeyHeader, c.adminKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("hub returned status %d", resp.StatusCode)
	}
	return nil
}
