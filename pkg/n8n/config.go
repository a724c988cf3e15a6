package n8n

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://n8n.sonnd.com/api/v1"

// APIKeyHeader is the header n8n reads the API key from.
const APIKeyHeader = "X-N8N-API-KEY"

// Config contains configuration for the n8n REST client.
//
// Example configuration (HCL):
//
//	n8n {
//	  base_url = "https://n8n.example.com/api/v1"
//	  api_key  = env("N8N_API")
//	  timeout  = "30s"
//	}
type Config struct {
	// BaseURL is the n8n public API root, including the /api/v1 suffix.
	BaseURL string `json:"baseUrl"`

	// APIKey is sent as X-N8N-API-KEY on every request.
	// It may be empty; the upstream then rejects calls and the probe reports so.
	APIKey string `json:"-"`

	// Timeout for a single upstream call. Zero leaves the transport default.
	Timeout time.Duration `json:"timeout,omitempty"`

	// TLSVerify controls TLS certificate verification.
	// Set to false only for development with self-signed certs.
	TLSVerify *bool `json:"tlsVerify,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		BaseURL:   DefaultBaseURL,
		TLSVerify: &tlsVerify,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(validateBaseURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func validateBaseURL(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}

	return nil
}

// NewHTTPClient creates a configured HTTP client for the n8n API.
func (c *Config) NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
