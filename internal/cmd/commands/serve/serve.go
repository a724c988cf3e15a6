package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/sonnd/n8n-ai-bridge/internal/api"
	"github.com/sonnd/n8n-ai-bridge/internal/cmd/base"
	"github.com/sonnd/n8n-ai-bridge/internal/config"
	"github.com/sonnd/n8n-ai-bridge/internal/server"
	"github.com/sonnd/n8n-ai-bridge/internal/version"
	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

const shutdownTimeout = 5 * time.Second

type Command struct {
	*base.Command

	configFlags base.ConfigFlags
}

func (c *Command) Synopsis() string {
	return "Run the n8n AI Bridge server"
}

func (c *Command) Help() string {
	return `Usage: n8n-bridge serve [options]

  Run the HTTP bridge in front of the n8n public API. Every forwarded call
  carries the configured API key. The key's permissions are probed once at
  startup and on every GET /api/n8n/status.

  Configuration is read from the optional -config file, then the environment
  (` + config.EnvAPIKey + `, ` + config.EnvBaseURL + `, ` + config.EnvPort + `, ...), then flags.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("serve", flag.ContinueOnError))
	c.configFlags.AddFlags(f)
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.configFlags.Load(afero.NewOsFs())
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	c.ConfigureLogger(cfg.LogLevel, cfg.LogJSON)

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		c.UI.Error(fmt.Sprintf("error listening on %s: %v", cfg.Address(), err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.serve(ctx, cfg, ln)
}

// serve runs the bridge on ln until ctx is cancelled or the server fails.
func (c *Command) serve(ctx context.Context, cfg *config.Config, ln net.Listener) int {
	log := c.Log

	clientCfg, err := cfg.N8N.ClientConfig()
	if err != nil {
		c.UI.Error(fmt.Sprintf("error configuring n8n client: %v", err))
		return 1
	}
	if clientCfg.APIKey == "" {
		log.Warn("no n8n API key configured, upstream calls will be rejected",
			"env", config.EnvAPIKey)
	}

	opts := []n8n.Option{n8n.WithLogger(log.Named("n8n"))}
	if cfg.Datadog.Enabled {
		tracer.Start(
			tracer.WithService(cfg.Datadog.Service),
			tracer.WithEnv(cfg.Datadog.Env),
			tracer.WithServiceVersion(version.Version),
		)
		defer tracer.Stop()

		opts = append(opts, n8n.WithHTTPClient(httptrace.WrapClient(clientCfg.NewHTTPClient())))
		log.Info("datadog tracing enabled", "service", cfg.Datadog.Service)
	}

	client, err := n8n.NewClient(clientCfg, opts...)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error creating n8n client: %v", err))
		return 1
	}

	srv := server.Server{
		Config: cfg,
		N8N:    client,
		Logger: log,
	}

	handler := api.NewHandler(srv)
	if cfg.Datadog.Enabled {
		handler = httptrace.WrapHandler(handler, cfg.Datadog.Service, "http.request")
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	c.UI.Info(fmt.Sprintf("n8n AI Bridge running on port %d", cfg.Server.Port))
	c.UI.Info(fmt.Sprintf("n8n API URL: %s", client.BaseURL()))

	perms := client.CheckPermissions(ctx)
	for _, line := range perms.Summary() {
		c.UI.Output("  " + line)
	}

	c.UI.Output("\nAvailable endpoints:")
	for _, ep := range api.Endpoints {
		c.UI.Output(fmt.Sprintf("  %-4s %-28s - %s", ep.Method, ep.Path, ep.Description))
	}

	select {
	case err := <-errCh:
		if err != nil {
			c.UI.Error(fmt.Sprintf("error serving HTTP: %v", err))
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		c.UI.Error(fmt.Sprintf("error shutting down server: %v", err))
		return 1
	}

	return 0
}
