package api

import (
	"net/http"

	"github.com/sonnd/n8n-ai-bridge/internal/server"
	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

// StatusResponse reports upstream connectivity and API key permissions.
type StatusResponse struct {
	Status      string           `json:"status"`
	Permissions *n8n.Permissions `json:"permissions"`
	BaseURL     string           `json:"baseUrl"`
}

// StatusHandler runs the permission probe on demand.
// Routes:
//
//	GET /api/n8n/status
func StatusHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondMethodNotAllowed(w, r, http.MethodGet)
			return
		}

		perms := srv.N8N.CheckPermissions(r.Context())

		writeJSON(w, http.StatusOK, StatusResponse{
			Status:      statusSuccess,
			Permissions: perms,
			BaseURL:     srv.Config.N8N.BaseURL,
		})
	})
}
