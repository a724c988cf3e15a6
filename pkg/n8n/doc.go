// Package n8n provides a client for the n8n public REST API (/api/v1).
//
// # Overview
//
// Every request carries a single static API key in the X-N8N-API-KEY header.
// Responses are returned as raw JSON so callers can relay them unchanged.
// Any non-2xx answer or transport failure is reported as *Error.
//
// # Configuration Example
//
//	n8n {
//	  base_url   = "https://n8n.example.com/api/v1"
//	  api_key    = env("N8N_API")
//	  timeout    = "30s"
//	  tls_verify = true
//	}
//
// # Upstream Endpoints Used
//
//   - GET    /workflows
//   - POST   /workflows
//   - GET    /workflows/:id
//   - PUT    /workflows/:id
//   - DELETE /workflows/:id
//   - POST   /workflows/:id/execute
//   - GET    /executions
//   - GET    /credentials
//   - GET    /users
//
// # Permission Probe
//
// CheckPermissions exercises read and write operations to learn what the key
// is allowed to do. Checks run one after another and a failed check never
// stops the rest. Write access is proven by creating a throwaway workflow
// which is deleted right away.
//
// # Error Handling
//
//   - No retries; the first failure is returned
//   - Upstream {"message": "..."} bodies become the error message
//   - StatusCode(err) recovers the upstream status for logging
package n8n
