// Package client provides a typed Go client for the MCP directory gateway
// REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ServerInfo is a basic MCP server record.
type ServerInfo struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Endpoint is a typed server endpoint URL.
type Endpoint struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ServerDetail is a server record with its endpoints.
type ServerDetail struct {
	ServerInfo
	Servers []Endpoint `json:"servers"`
}

// OperationalServer is an activated server with live endpoints.
type OperationalServer struct {
	Name        string     `json:"name"`
	ID          string     `json:"id"`
	Description string     `json:"description"`
	MCPServers  []Endpoint `json:"mcp_servers"`
}

// ServerList is a directory listing result.
type ServerList struct {
	TotalCount int          `json:"total_count"`
	Servers    []ServerInfo `json:"servers"`
}

// OperationalList is an operational listing result.
type OperationalList struct {
	TotalCount int                 `json:"total_count"`
	Servers    []OperationalServer `json:"servers"`
}

// ListOptions are the optional parameters for ListServers.
type ListOptions struct {
	Filter     map[string]any `json:"filter,omitempty"`
	TotalCount int            `json:"total_count,omitempty"`
	Search     string         `json:"search,omitempty"`
}

// APIError is the decoded error envelope returned by the gateway.
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
}

// Client is the gateway SDK entry point.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the ModelScope token forwarded on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client targeting the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListServers lists MCP servers with optional filtering and search.
func (c *Client) ListServers(ctx context.Context, opts ListOptions) (*ServerList, error) {
	var result ServerList
	if err := c.post(ctx, "/api/v1/servers/list", opts, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOperationalServers lists the caller's activated servers. Requires a
// token to have been configured with WithToken.
func (c *Client) ListOperationalServers(ctx context.Context) (*OperationalList, error) {
	var result OperationalList
	if err := c.post(ctx, "/api/v1/servers/operational", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetServer fetches detail for a single server id. The id may be given
// with or without its leading "@".
func (c *Client) GetServer(ctx context.Context, serverID string) (*ServerDetail, error) {
	payload := map[string]string{"server_id": serverID}
	var result ServerDetail
	if err := c.post(ctx, "/api/v1/servers/detail", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks the gateway health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Modelscope-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Kind == "" {
			apiErr.Kind = "UnknownError"
			apiErr.Message = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
