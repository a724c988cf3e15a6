package status

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/sonnd/n8n-ai-bridge/internal/cmd/base"
	"github.com/sonnd/n8n-ai-bridge/internal/config"
	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

var errNoConnection = errors.New("n8n is not reachable with the configured API key")

type Command struct {
	*base.Command

	configFlags base.ConfigFlags
	flagJSON    bool
	flagWait    time.Duration

	// fs is swapped in tests.
	fs afero.Fs
}

// Report is the -json output.
type Report struct {
	Permissions *n8n.Permissions `json:"permissions"`
	BaseURL     string           `json:"baseUrl"`
}

func (c *Command) Synopsis() string {
	return "Check the n8n connection and API key permissions"
}

func (c *Command) Help() string {
	return `Usage: n8n-bridge status [options]

  Run the permission probe once against the configured n8n instance and print
  which operations the API key may perform. The probe creates and deletes a
  temporary workflow named "` + n8n.ProbeWorkflowName + `".

  Exits 0 when n8n is reachable, 1 otherwise.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("status", flag.ContinueOnError))
	c.configFlags.AddFlags(f)

	f.BoolVar(
		&c.flagJSON, "json", false,
		"Print the report as JSON",
	)
	f.DurationVar(
		&c.flagWait, "wait", 0,
		"Retry with exponential backoff until n8n is reachable or this duration elapses",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	fs := c.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfg, err := c.configFlags.Load(fs)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	c.ConfigureLogger(cfg.LogLevel, cfg.LogJSON)

	client, err := newClient(cfg, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error creating n8n client: %v", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	perms, err := c.check(ctx, client)
	if err != nil && !errors.Is(err, errNoConnection) {
		c.UI.Error(fmt.Sprintf("error checking permissions: %v", err))
		return 1
	}

	if c.flagJSON {
		out, err := json.MarshalIndent(Report{
			Permissions: perms,
			BaseURL:     client.BaseURL(),
		}, "", "  ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("error encoding report: %v", err))
			return 1
		}
		c.UI.Output(string(out))
	} else {
		c.UI.Output(fmt.Sprintf("n8n API URL: %s", client.BaseURL()))
		for _, line := range perms.Summary() {
			c.UI.Output("  " + line)
		}
	}

	if !perms.Connection {
		return 1
	}
	return 0
}

// check runs the probe, retrying while the connection check fails and the
// wait budget allows it. The last report is always returned.
func (c *Command) check(ctx context.Context, client *n8n.Client) (*n8n.Permissions, error) {
	var perms *n8n.Permissions
	probe := func() error {
		perms = client.CheckPermissions(ctx)
		if !perms.Connection {
			return errNoConnection
		}
		return nil
	}

	if c.flagWait <= 0 {
		err := probe()
		return perms, err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.flagWait

	err := backoff.RetryNotify(probe, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		c.Log.Info("n8n not reachable, retrying", "error", err, "next", next)
	})
	return perms, err
}

func newClient(cfg *config.Config, log hclog.Logger) (*n8n.Client, error) {
	clientCfg, err := cfg.N8N.ClientConfig()
	if err != nil {
		return nil, err
	}
	return n8n.NewClient(clientCfg, n8n.WithLogger(log.Named("n8n")))
}
