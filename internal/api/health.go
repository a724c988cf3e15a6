package api

import (
	"net/http"
)

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthHandler reports that the bridge process is up. It never calls n8n.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respondMethodNotAllowed(w, r, http.MethodGet, http.MethodHead)
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Message: "n8n AI Bridge is running",
		})
	})
}
