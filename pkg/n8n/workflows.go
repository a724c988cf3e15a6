package n8n

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Workflow is the minimal workflow definition n8n accepts on create.
// Forwarded definitions are never decoded into this type.
type Workflow struct {
	Name        string         `json:"name"`
	Nodes       []Node         `json:"nodes"`
	Connections map[string]any `json:"connections"`
	Settings    map[string]any `json:"settings"`
}

// Node is a single workflow node.
type Node struct {
	Parameters  map[string]any `json:"parameters"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion int            `json:"typeVersion"`
	Position    [2]int         `json:"position"`
}

// ListWorkflows calls GET /workflows.
func (c *Client) ListWorkflows(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/workflows", query, nil)
}

// CreateWorkflow calls POST /workflows with the given definition.
func (c *Client) CreateWorkflow(ctx context.Context, definition any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, "/workflows", nil, definition)
}

// GetWorkflow calls GET /workflows/{id}.
func (c *Client) GetWorkflow(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, workflowPath(id), nil, nil)
}

// UpdateWorkflow calls PUT /workflows/{id} with the given definition.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, definition any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, workflowPath(id), nil, definition)
}

// ExecuteWorkflow calls POST /workflows/{id}/execute without a body.
func (c *Client) ExecuteWorkflow(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, workflowPath(id)+"/execute", nil, nil)
}

// DeleteWorkflow calls DELETE /workflows/{id}.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, workflowPath(id), nil, nil)
}

// ListExecutions calls GET /executions.
func (c *Client) ListExecutions(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/executions", query, nil)
}

// ListCredentials calls GET /credentials.
func (c *Client) ListCredentials(ctx context.Context) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/credentials", nil, nil)
}

// ListUsers calls GET /users. Not every n8n edition exposes it.
func (c *Client) ListUsers(ctx context.Context) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, "/users", nil, nil)
}

func workflowPath(id string) string {
	return fmt.Sprintf("/workflows/%s", url.PathEscape(id))
}
