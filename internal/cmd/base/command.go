package base

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Command is embedded by every subcommand.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger
}

// ConfigureLogger applies the configured level and output format to the
// command logger. hclog cannot switch formats in place, so a JSON logger
// replaces the existing one.
func (c *Command) ConfigureLogger(level string, jsonFormat bool) {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	if jsonFormat {
		c.Log = hclog.New(&hclog.LoggerOptions{
			Name:       c.Log.Name(),
			Level:      lvl,
			JSONFormat: true,
		})
		return
	}
	c.Log.SetLevel(lvl)
}
