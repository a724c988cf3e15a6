package api

import (
	"net/http"

	"github.com/sonnd/n8n-ai-bridge/internal/server"
)

// ExecutionsHandler forwards execution listing to n8n.
// Routes:
//
//	GET /api/executions
func ExecutionsHandler(srv server.Server) http.Handler {
	logger := srv.Logger.Named("executions")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondMethodNotAllowed(w, r, http.MethodGet)
			return
		}

		data, err := srv.N8N.ListExecutions(r.Context(), r.URL.Query())
		if err != nil {
			respondUpstreamError(w, logger, "listing executions", err)
			return
		}
		respondSuccess(w, data)
	})
}
