package n8n

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"
)

// ProbeWorkflowName is the name of the disposable workflow created to prove
// write access.
const ProbeWorkflowName = "AI-Bridge-Test-Workflow"

// Permissions reports which operations the configured API key may perform.
type Permissions struct {
	Connection  bool           `json:"connection"`
	Workflows   ReadWriteScope `json:"workflows"`
	Executions  ReadScope      `json:"executions"`
	Credentials ReadScope      `json:"credentials"`
	Users       ReadScope      `json:"users"`
}

// ReadWriteScope holds read and write flags for a resource.
type ReadWriteScope struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// ReadScope holds the read flag for a resource.
type ReadScope struct {
	Read bool `json:"read"`
}

// ProbeWorkflow returns the minimal workflow used by the write check.
func ProbeWorkflow() Workflow {
	return Workflow{
		Name: ProbeWorkflowName,
		Nodes: []Node{
			{
				Parameters:  map[string]any{},
				Name:        "Start",
				Type:        "n8n-nodes-base.start",
				TypeVersion: 1,
				Position:    [2]int{240, 300},
			},
		},
		Connections: map[string]any{},
		Settings:    map[string]any{},
	}
}

// probeStep is one independent check. It returns nil when the operation was
// permitted.
type probeStep struct {
	resource string
	access   string
	run      func(ctx context.Context) error
	apply    func(p *Permissions)
}

// CheckPermissions runs every permission check in order and returns a fully
// populated report. A failed check only clears its own flag; later checks
// always run. It never returns an error.
func (c *Client) CheckPermissions(ctx context.Context) *Permissions {
	logger := c.logger.Named("probe")
	logger.Info("testing n8n connection", "base_url", c.config.BaseURL)

	perms := &Permissions{}

	steps := []probeStep{
		{
			resource: "connection",
			run:      succeeded(c.listWorkflows),
			apply: func(p *Permissions) {
				p.Connection = true
				p.Workflows.Read = true
			},
		},
		{
			resource: "workflows",
			access:   "read",
			run:      succeeded(c.listWorkflows),
			apply:    func(p *Permissions) { p.Workflows.Read = true },
		},
		{
			resource: "workflows",
			access:   "write",
			run:      func(ctx context.Context) error { return c.checkWorkflowWrite(ctx, logger) },
			apply:    func(p *Permissions) { p.Workflows.Write = true },
		},
		{
			resource: "executions",
			access:   "read",
			run:      succeeded(c.listExecutions),
			apply:    func(p *Permissions) { p.Executions.Read = true },
		},
		{
			resource: "credentials",
			access:   "read",
			run:      succeeded(c.ListCredentials),
			apply:    func(p *Permissions) { p.Credentials.Read = true },
		},
		{
			resource: "users",
			access:   "read",
			run:      succeeded(c.ListUsers),
			apply:    func(p *Permissions) { p.Users.Read = true },
		},
	}

	var failures *multierror.Error
	for _, step := range steps {
		label := stepLabel(step.resource, step.access)

		if err := step.run(ctx); err != nil {
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", label, err))
			logger.Info(label+" denied", "upstream_status", StatusCode(err), "error", err)
			continue
		}

		step.apply(perms)
		logger.Info(label + " available")
	}

	if !perms.Connection {
		logger.Warn("n8n connection failed, check N8N_API and N8N_BASE_URL",
			"base_url", c.config.BaseURL)
	}
	if err := failures.ErrorOrNil(); err != nil {
		logger.Debug("permission checks failed", "count", len(failures.Errors), "errors", err)
	}

	return perms
}

// checkWorkflowWrite creates the probe workflow and removes it again. Only the
// create call decides the outcome; a failed cleanup is logged and ignored.
func (c *Client) checkWorkflowWrite(ctx context.Context, logger hclog.Logger) error {
	resp, err := c.CreateWorkflow(ctx, ProbeWorkflow())
	if err != nil {
		return err
	}

	id, err := createdWorkflowID(resp)
	if err != nil {
		logger.Warn("probe workflow created but its id is unknown, skipping cleanup", "error", err)
		return nil
	}

	if _, err := c.DeleteWorkflow(ctx, id); err != nil {
		logger.Warn("failed to clean up probe workflow", "workflow_id", id, "error", err)
		return nil
	}

	logger.Info("probe workflow cleaned up", "workflow_id", id)
	return nil
}

// createdWorkflowID extracts the id of a freshly created workflow. Older n8n
// releases return numeric ids, so decoding is weakly typed.
func createdWorkflowID(resp json.RawMessage) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(resp, &raw); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}

	var created struct {
		ID string `mapstructure:"id"`
	}
	if err := mapstructure.WeakDecode(raw, &created); err != nil {
		return "", fmt.Errorf("failed to decode workflow id: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create response has no id")
	}

	return created.ID, nil
}

func (c *Client) listWorkflows(ctx context.Context) (json.RawMessage, error) {
	return c.ListWorkflows(ctx, nil)
}

func (c *Client) listExecutions(ctx context.Context) (json.RawMessage, error) {
	return c.ListExecutions(ctx, nil)
}

// succeeded adapts a call that returns a body into a check that only reports
// whether it succeeded.
func succeeded(call func(ctx context.Context) (json.RawMessage, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := call(ctx)
		return err
	}
}

func stepLabel(resource, access string) string {
	if access == "" {
		return resource
	}
	return fmt.Sprintf("%s %s", resource, access)
}

// Summary renders the report as one line per flag, e.g.
// "Workflows WRITE permission: Available".
func (p *Permissions) Summary() []string {
	rows := []struct {
		resource string
		access   string
		ok       bool
	}{
		{"workflows", "read", p.Workflows.Read},
		{"workflows", "write", p.Workflows.Write},
		{"executions", "read", p.Executions.Read},
		{"credentials", "read", p.Credentials.Read},
		{"users", "read", p.Users.Read},
	}

	lines := make([]string, 0, len(rows)+1)
	if p.Connection {
		lines = append(lines, "Connection: OK")
	} else {
		lines = append(lines, "Connection: FAILED")
	}

	for _, r := range rows {
		state := "Denied"
		if r.ok {
			state = "Available"
		}
		lines = append(lines, fmt.Sprintf("%s %s permission: %s",
			strcase.ToCamel(r.resource), strcase.ToScreamingSnake(r.access), state))
	}

	return lines
}
