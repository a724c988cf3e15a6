package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/sonnd/n8n-ai-bridge/internal/cmd/base"
	"github.com/sonnd/n8n-ai-bridge/internal/cmd/commands/serve"
	"github.com/sonnd/n8n-ai-bridge/internal/cmd/commands/status"
	"github.com/sonnd/n8n-ai-bridge/internal/cmd/commands/version"
)

// Commands is the mapping of all available commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &serve.Command{Command: b}, nil
		},
		"status": func() (cli.Command, error) {
			return &status.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
