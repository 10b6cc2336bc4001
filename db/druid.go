package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	druidQueryEndpoint  = "/druid/v2"
	druidStatusEndpoint = "/status"
)

// Doer is the minimal HTTP client surface, satisfied by *http.Client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DruidClient posts native JSON queries to a columnar store's query
// endpoint. Connection pooling, retries and timeouts belong to the
// underlying HTTP client.
type DruidClient struct {
	BaseURL  string
	Username string
	Password string
	HTTP     Doer
}

// NewDruidClient creates a client for the given base URL. Basic auth is
// enabled when both username and password are set.
func NewDruidClient(baseURL, username, password string, timeout time.Duration) *DruidClient {
	return &DruidClient{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// Query posts one native query and returns the raw response body
func (c *DruidClient) Query(ctx context.Context, query any) (json.RawMessage, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+druidQueryEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Username != "" && c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query returned status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}

// Ping checks the store's status endpoint
func (c *DruidClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+druidStatusEndpoint, nil)
	if err != nil {
		return err
	}
	if c.Username != "" && c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status returned %d", resp.StatusCode)
	}
	return nil
}
