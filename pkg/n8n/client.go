package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Client issues calls against the n8n public REST API using a single static
// API key. It is safe for concurrent use.
type Client struct {
	config *Config
	client *http.Client
	logger hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client and the permission probe.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client built from the config, e.g. to add
// tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a new n8n API client. The client keeps its own copy of
// cfg; the caller's value is never modified.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfgCopy := *cfg
	cfg = &cfgCopy
	if cfg.TLSVerify == nil {
		cfg.TLSVerify = DefaultConfig().TLSVerify
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid n8n client config: %w", err)
	}

	c := &Client{
		config: cfg,
		client: cfg.NewHTTPClient(),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the configured upstream API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do performs a single call and returns the response body on any 2xx status.
// The body is returned verbatim when it is JSON; an empty body becomes null
// and any other payload is returned as a JSON string.
//
// Non-2xx responses and transport failures are returned as *Error. Nothing is
// retried.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	endpoint := c.buildURL(path, query)

	var bodyReader io.Reader
	if body != nil {
		var bodyBytes []byte
		switch b := body.(type) {
		case json.RawMessage:
			bodyBytes = b
		default:
			var err error
			bodyBytes, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(APIKeyHeader, c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("upstream request failed", "method", method, "path", path, "error", err)
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Trace("upstream response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp.StatusCode, respBody)
	}

	return normalizeBody(respBody)
}

// normalizeBody makes sure the returned payload is always valid JSON.
func normalizeBody(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	encoded, err := json.Marshal(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return encoded, nil
}

// buildURL joins the base URL and path, and attaches query parameters.
func (c *Client) buildURL(path string, query url.Values) string {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}
