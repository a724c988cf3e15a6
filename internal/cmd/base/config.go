package base

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/sonnd/n8n-ai-bridge/internal/config"
)

// ConfigFlags are the configuration flags shared by serve and status.
// Flags override the config file and the environment.
type ConfigFlags struct {
	Path     string
	BaseURL  string
	Port     int
	LogLevel string
	LogJSON  bool
}

// AddFlags registers the flags on f.
func (cf *ConfigFlags) AddFlags(f *FlagSet) {
	f.StringVar(
		&cf.Path, "config", "",
		"Path to an HCL configuration file",
	)
	f.StringVar(
		&cf.BaseURL, "base-url", "",
		fmt.Sprintf("[%s] n8n public API root", config.EnvBaseURL),
	)
	f.IntVar(
		&cf.Port, "port", 0,
		fmt.Sprintf("[%s] Port to listen on (default %d)", config.EnvPort, config.DefaultPort),
	)
	f.StringVar(
		&cf.LogLevel, "log-level", "",
		fmt.Sprintf("[%s] Log level: trace, debug, info, warn or error", config.EnvLogLevel),
	)
	f.BoolVar(
		&cf.LogJSON, "log-json", false,
		"Write logs as JSON",
	)
}

// Load reads the configuration, applies flag overrides and validates the
// result.
func (cf *ConfigFlags) Load(fs afero.Fs) (*config.Config, error) {
	cfg, err := config.Load(fs, cf.Path)
	if err != nil {
		return nil, err
	}

	if cf.BaseURL != "" {
		cfg.N8N.BaseURL = cf.BaseURL
	}
	if cf.Port != 0 {
		cfg.Server.Port = cf.Port
	}
	if cf.LogLevel != "" {
		cfg.LogLevel = cf.LogLevel
	}
	if cf.LogJSON {
		cfg.LogJSON = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
