package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

const (
	// DefaultPort is the local listen port when none is configured.
	DefaultPort = 3000

	// DefaultLogLevel is the log level when none is configured.
	DefaultLogLevel = "info"

	// DefaultDatadogService is the service name reported to Datadog.
	DefaultDatadogService = "n8n-bridge"

	// DotenvFile is read from the working directory when present.
	DotenvFile = ".env"
)

// Environment variables read by Load.
const (
	EnvAPIKey         = "N8N_API"
	EnvBaseURL        = "N8N_BASE_URL"
	EnvTimeout        = "N8N_TIMEOUT"
	EnvPort           = "PORT"
	EnvLogLevel       = "N8N_BRIDGE_LOG_LEVEL"
	EnvDatadogEnabled = "DD_TRACE_ENABLED"
)

// Config contains the bridge configuration.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `hcl:"log_level,optional"`

	// LogJSON switches log output to JSON.
	LogJSON bool `hcl:"log_json,optional"`

	// Server configures the local HTTP listener.
	Server *Server `hcl:"server,block"`

	// N8N configures the upstream n8n API.
	N8N *N8N `hcl:"n8n,block"`

	// Datadog configures optional APM tracing.
	Datadog *Datadog `hcl:"datadog,block"`
}

// Server configures the local HTTP listener.
type Server struct {
	// Port is the TCP port to listen on.
	Port int `hcl:"port,optional"`
}

// N8N configures the upstream n8n API.
type N8N struct {
	// BaseURL is the n8n public API root, e.g. "https://n8n.example.com/api/v1".
	BaseURL string `hcl:"base_url,optional"`

	// APIKey is injected as X-N8N-API-KEY into every upstream call.
	APIKey string `hcl:"api_key,optional"`

	// Timeout bounds a single upstream call, e.g. "30s". Empty means no
	// timeout beyond the transport defaults.
	Timeout string `hcl:"timeout,optional"`

	// TLSVerify controls upstream certificate verification.
	TLSVerify *bool `hcl:"tls_verify,optional"`
}

// Datadog configures optional APM tracing.
type Datadog struct {
	Enabled bool   `hcl:"enabled,optional"`
	Service string `hcl:"service,optional"`
	Env     string `hcl:"env,optional"`
}

// Default returns a Config populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load builds the configuration from the optional HCL file at path, then the
// environment. Variables missing from the environment are taken from a .env
// file in the working directory when one exists. An empty path skips the HCL
// file.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		src, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := hclsimple.Decode(path, src, evalContext(), cfg); err != nil {
			return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
		}
	}

	cfg.applyDefaults()

	dotenv, err := readDotenv(fs, DotenvFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(envLookup(dotenv)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readDotenv parses an optional dotenv file. A missing file yields no values.
func readDotenv(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return values, nil
}

// envLookup resolves variables from the process environment first and falls
// back to dotenv values. Empty process values do not hide dotenv values.
func envLookup(dotenv map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val, true
		}
		val, ok := dotenv[name]
		return val, ok
	}
}

// evalContext exposes env("NAME") to configuration files.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": function.New(&function.Spec{
				Params: []function.Parameter{
					{Name: "name", Type: cty.String},
				},
				Type: function.StaticReturnType(cty.String),
				Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
					return cty.StringVal(os.Getenv(args[0].AsString())), nil
				},
			}),
		},
	}
}

// applyDefaults sets defaults for anything left unset.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.N8N == nil {
		c.N8N = &N8N{}
	}
	if c.N8N.BaseURL == "" {
		c.N8N.BaseURL = n8n.DefaultBaseURL
	}
	if c.N8N.TLSVerify == nil {
		tlsVerify := true
		c.N8N.TLSVerify = &tlsVerify
	}

	if c.Datadog == nil {
		c.Datadog = &Datadog{}
	}
	if c.Datadog.Service == "" {
		c.Datadog.Service = DefaultDatadogService
	}
}

// applyEnv overrides values with environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var result *multierror.Error

	if val, ok := lookup(EnvAPIKey); ok && strings.TrimSpace(val) != "" {
		c.N8N.APIKey = strings.TrimSpace(val)
	}
	if val, ok := lookup(EnvBaseURL); ok && val != "" {
		c.N8N.BaseURL = strings.TrimSpace(val)
	}
	if val, ok := lookup(EnvTimeout); ok && val != "" {
		c.N8N.Timeout = val
	}
	if val, ok := lookup(EnvLogLevel); ok && val != "" {
		c.LogLevel = val
	}
	if val, ok := lookup(EnvPort); ok && val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid %s %q: %w", EnvPort, val, err))
		} else {
			c.Server.Port = port
		}
	}
	if val, ok := lookup(EnvDatadogEnabled); ok && val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid %s %q: %w", EnvDatadogEnabled, val, err))
		} else {
			c.Datadog.Enabled = enabled
		}
	}

	return result.ErrorOrNil()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In("trace", "debug", "info", "warn", "error"),
		),
		validation.Field(&c.Server, validation.Required),
		validation.Field(&c.N8N, validation.Required),
	)
}

// Validate checks the listener configuration.
func (s *Server) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Validate checks the upstream configuration.
func (n *N8N) Validate() error {
	if err := validation.ValidateStruct(n,
		validation.Field(&n.Timeout, validation.By(validateDuration)),
	); err != nil {
		return err
	}

	cfg, err := n.ClientConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func validateDuration(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("must be a duration like \"30s\"")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// ClientConfig converts the upstream settings into an n8n client config.
func (n *N8N) ClientConfig() (*n8n.Config, error) {
	var timeout time.Duration
	if n.Timeout != "" {
		d, err := time.ParseDuration(n.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid n8n timeout %q: %w", n.Timeout, err)
		}
		timeout = d
	}

	return &n8n.Config{
		BaseURL:   n.BaseURL,
		APIKey:    n.APIKey,
		Timeout:   timeout,
		TLSVerify: n.TLSVerify,
	}, nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
