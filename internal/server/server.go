package server

import (
	"github.com/hashicorp/go-hclog"

	"github.com/sonnd/n8n-ai-bridge/internal/config"
	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

// Server contains the server configuration. It is built once at startup and
// never mutated afterwards, so handlers may share it freely.
type Server struct {
	// Config is the config for the server.
	Config *config.Config

	// N8N is the client for the upstream n8n API. It carries the base URL and
	// API key.
	N8N *n8n.Client

	// Logger is the logger for the server.
	Logger hclog.Logger
}
