package version

import (
	"fmt"

	"github.com/sonnd/n8n-ai-bridge/internal/cmd/base"
	"github.com/sonnd/n8n-ai-bridge/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return `Usage: n8n-bridge version

  Print the version of the n8n AI Bridge.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(fmt.Sprintf("n8n-bridge v%s", version.Version))
	return 0
}
