// Package modelscope is an HTTP client for the ModelScope MCP server
// directory. It implements directory.RegistryAPI; faults are surfaced as
// plain errors whose message text is what the directory service classifies.
package modelscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/modelriver/mcp-gateway/internal/directory"
)

const defaultBaseURL = "https://modelscope.cn"

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Client talks to the ModelScope MCP directory API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string // set by Login, attached as a bearer token afterwards
}

// NewClient creates a Client targeting baseURL. An empty baseURL selects
// the public ModelScope endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Login verifies the token against the user-info endpoint and stores it
// for subsequent requests.
func (c *Client) Login(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/openapi/v1/user/info", nil)
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connection to modelscope failed during login: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		c.token = token
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("authentication rejected by modelscope (status %d)", resp.StatusCode)
	default:
		return fmt.Errorf("modelscope login returned status %d", resp.StatusCode)
	}
}

type listRequest struct {
	Filter     map[string]any `json:"filter,omitempty"`
	TotalCount int            `json:"total_count"`
	Search     string         `json:"search,omitempty"`
}

// ListServers queries the directory listing endpoint.
func (c *Client) ListServers(ctx context.Context, q directory.ListQuery) (*directory.ServerList, error) {
	payload := listRequest{TotalCount: q.Count}
	if len(q.Filter) > 0 {
		payload.Filter = q.Filter
	}
	if q.Search != "" {
		payload.Search = q.Search
	}

	var result directory.ServerList
	if err := c.doJSON(ctx, http.MethodPost, "/openapi/v1/mcp/servers", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOperationalServers queries the caller's activated servers.
func (c *Client) ListOperationalServers(ctx context.Context) (*directory.OperationalList, error) {
	var result directory.OperationalList
	if err := c.doJSON(ctx, http.MethodGet, "/openapi/v1/mcp/servers/operational", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetServer fetches one server record by its @group/name id.
func (c *Client) GetServer(ctx context.Context, serverID string) (*directory.ServerDetail, error) {
	var result directory.ServerDetail
	path := "/openapi/v1/mcp/servers/" + url.PathEscape(serverID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("mcp server %s does not exist", serverID)
		}
		return nil, err
	}
	return &result, nil
}

// statusError marks a non-2xx upstream response with its HTTP status.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func isStatus(err error, status int) bool {
	se, ok := err.(*statusError)
	return ok && se.status == status
}

// doJSON issues a request and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connection to modelscope failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("network read from modelscope failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.StatusCode, msg: upstreamMessage(resp.StatusCode, raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode modelscope response: %w", err)
	}
	return nil
}

// upstreamMessage shapes a non-2xx response into an error string. The
// wording matters: the directory layer classifies faults by substring.
func upstreamMessage(status int, body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	detail := ""
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		detail = ": " + envelope.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("permission denied by modelscope (status %d)%s", status, detail)
	case http.StatusNotFound:
		return fmt.Sprintf("requested resource not found (status %d)%s", status, detail)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Sprintf("network error: modelscope unavailable (status %d)%s", status, detail)
	default:
		return fmt.Sprintf("modelscope returned status %d%s", status, detail)
	}
}
