package api

import (
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/sonnd/n8n-ai-bridge/internal/server"
)

const workflowsPath = "/api/workflows"

// WorkflowsHandler forwards workflow calls to n8n.
// Routes:
//
//	GET    /api/workflows              - List workflows
//	POST   /api/workflows              - Create workflow
//	GET    /api/workflows/:id          - Get workflow
//	PUT    /api/workflows/:id          - Update workflow
//	POST   /api/workflows/:id/execute  - Execute workflow
func WorkflowsHandler(srv server.Server) http.Handler {
	logger := srv.Logger.Named("workflows")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts, err := parseResourcePath(r.URL.EscapedPath(), workflowsPath)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		switch {
		case len(parts) == 0:
			// /api/workflows
			switch r.Method {
			case http.MethodGet:
				listWorkflows(w, r, srv, logger)
			case http.MethodPost:
				createWorkflow(w, r, srv, logger)
			default:
				respondMethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
			}

		case len(parts) == 1:
			// /api/workflows/:id
			switch r.Method {
			case http.MethodGet:
				getWorkflow(w, r, srv, logger, parts[0])
			case http.MethodPut:
				updateWorkflow(w, r, srv, logger, parts[0])
			default:
				respondMethodNotAllowed(w, r, http.MethodGet, http.MethodPut)
			}

		case len(parts) == 2 && parts[1] == "execute":
			// /api/workflows/:id/execute
			if r.Method != http.MethodPost {
				respondMethodNotAllowed(w, r, http.MethodPost)
				return
			}
			executeWorkflow(w, r, srv, logger, parts[0])

		default:
			respondNotFound(w, r)
		}
	})
}

func listWorkflows(w http.ResponseWriter, r *http.Request, srv server.Server, logger hclog.Logger) {
	data, err := srv.N8N.ListWorkflows(r.Context(), r.URL.Query())
	if err != nil {
		respondUpstreamError(w, logger, "listing workflows", err)
		return
	}
	respondSuccess(w, data)
}

func createWorkflow(w http.ResponseWriter, r *http.Request, srv server.Server, logger hclog.Logger) {
	body, err := readJSONBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	data, err := srv.N8N.CreateWorkflow(r.Context(), body)
	if err != nil {
		respondUpstreamError(w, logger, "creating workflow", err)
		return
	}
	respondSuccess(w, data)
}

func getWorkflow(w http.ResponseWriter, r *http.Request, srv server.Server, logger hclog.Logger, id string) {
	data, err := srv.N8N.GetWorkflow(r.Context(), id)
	if err != nil {
		respondUpstreamError(w, logger.With("workflow_id", id), "getting workflow", err)
		return
	}
	respondSuccess(w, data)
}

func updateWorkflow(w http.ResponseWriter, r *http.Request, srv server.Server, logger hclog.Logger, id string) {
	body, err := readJSONBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	data, err := srv.N8N.UpdateWorkflow(r.Context(), id, body)
	if err != nil {
		respondUpstreamError(w, logger.With("workflow_id", id), "updating workflow", err)
		return
	}
	respondSuccess(w, data)
}

func executeWorkflow(w http.ResponseWriter, r *http.Request, srv server.Server, logger hclog.Logger, id string) {
	data, err := srv.N8N.ExecuteWorkflow(r.Context(), id)
	if err != nil {
		respondUpstreamError(w, logger.With("workflow_id", id), "executing workflow", err)
		return
	}
	respondSuccess(w, data)
}
