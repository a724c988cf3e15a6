package api

import (
	"net/http"

	"github.com/sonnd/n8n-ai-bridge/internal/server"
)

// Endpoint describes a route for the startup banner.
type Endpoint struct {
	Method      string
	Path        string
	Description string
}

// Endpoints lists every route served by NewHandler.
var Endpoints = []Endpoint{
	{http.MethodGet, "/health", "Health check"},
	{http.MethodGet, "/api/n8n/status", "n8n connection status"},
	{http.MethodGet, "/api/workflows", "List all workflows"},
	{http.MethodPost, "/api/workflows", "Create new workflow"},
	{http.MethodGet, "/api/workflows/:id", "Get specific workflow"},
	{http.MethodPut, "/api/workflows/:id", "Update workflow"},
	{http.MethodPost, "/api/workflows/:id/execute", "Execute workflow"},
	{http.MethodGet, "/api/executions", "List executions"},
}

// NewHandler builds the complete HTTP handler: routes, CORS and request
// logging.
func NewHandler(srv server.Server) http.Handler {
	logger := srv.Logger.Named("api")
	srv.Logger = logger

	mux := http.NewServeMux()
	mux.Handle("/health", HealthHandler())
	mux.Handle("/api/n8n/status", StatusHandler(srv))

	workflows := WorkflowsHandler(srv)
	mux.Handle(workflowsPath, workflows)
	mux.Handle(workflowsPath+"/", workflows)

	mux.Handle("/api/executions", ExecutionsHandler(srv))

	mux.Handle("/", http.HandlerFunc(respondNotFound))

	return LoggingMiddleware(logger, CORSMiddleware(mux))
}
