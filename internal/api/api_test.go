package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonnd/n8n-ai-bridge/internal/config"
	"github.com/sonnd/n8n-ai-bridge/internal/server"
	"github.com/sonnd/n8n-ai-bridge/pkg/n8n"
)

// upstreamCall records a request received by the fake n8n.
type upstreamCall struct {
	Method string
	Path   string
	Query  string
	Body   string
	APIKey string
}

// fakeUpstream answers every request with the configured status and body and
// records what it received.
type fakeUpstream struct {
	mu     sync.Mutex
	calls  []upstreamCall
	status int
	body   string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, upstreamCall{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Query:  r.URL.RawQuery,
		Body:   string(body),
		APIKey: r.Header.Get(n8n.APIKeyHeader),
	})
	status, respBody := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(respBody))
}

func (f *fakeUpstream) lastCall(t *testing.T) upstreamCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls, "expected an upstream call")
	return f.calls[len(f.calls)-1]
}

// newTestHandler wires the full handler stack against baseURL.
func newTestHandler(t *testing.T, baseURL string) http.Handler {
	t.Helper()

	cfg := config.Default()
	cfg.N8N.BaseURL = baseURL
	cfg.N8N.APIKey = "test-api-key"

	clientCfg, err := cfg.N8N.ClientConfig()
	require.NoError(t, err)

	client, err := n8n.NewClient(clientCfg)
	require.NoError(t, err)

	return NewHandler(server.Server{
		Config: cfg,
		N8N:    client,
		Logger: hclog.NewNullLogger(),
	})
}

func newUpstream(t *testing.T, status int, body string) (*fakeUpstream, http.Handler) {
	t.Helper()

	fake := &fakeUpstream{status: status, body: body}
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	return fake, newTestHandler(t, upstream.URL+"/api/v1")
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	// Nothing listens here; health must not touch the upstream.
	handler := newTestHandler(t, "http://127.0.0.1:1/api/v1")

	w := serve(handler, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","message":"n8n AI Bridge is running"}`, w.Body.String())
}

func TestForwardingRoutes_Success(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   string
	}{
		{
			name:       "list workflows",
			method:     http.MethodGet,
			target:     "/api/workflows",
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/workflows",
		},
		{
			name:       "list workflows with query",
			method:     http.MethodGet,
			target:     "/api/workflows?active=true&limit=10",
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/workflows",
			wantQuery:  "active=true&limit=10",
		},
		{
			name:       "create workflow",
			method:     http.MethodPost,
			target:     "/api/workflows",
			body:       `{"name":"New","nodes":[],"connections":{},"settings":{}}`,
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/workflows",
			wantBody:   `{"name":"New","nodes":[],"connections":{},"settings":{}}`,
		},
		{
			name:       "create workflow with empty body",
			method:     http.MethodPost,
			target:     "/api/workflows",
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/workflows",
			wantBody:   `{}`,
		},
		{
			name:       "get workflow",
			method:     http.MethodGet,
			target:     "/api/workflows/wf-7",
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/workflows/wf-7",
		},
		{
			name:       "update workflow",
			method:     http.MethodPut,
			target:     "/api/workflows/wf-7",
			body:       `{"name":"Renamed"}`,
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/workflows/wf-7",
			wantBody:   `{"name":"Renamed"}`,
		},
		{
			name:       "execute workflow",
			method:     http.MethodPost,
			target:     "/api/workflows/wf-7/execute",
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/workflows/wf-7/execute",
		},
		{
			name:       "list executions",
			method:     http.MethodGet,
			target:     "/api/executions?workflowId=wf-7",
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/executions",
			wantQuery:  "workflowId=wf-7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, handler := newUpstream(t, http.StatusOK, `{"id":"wf-7","name":"Test"}`)

			w := serve(handler, tt.method, tt.target, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"status":"success","data":{"id":"wf-7","name":"Test"}}`, w.Body.String())

			call := fake.lastCall(t)
			assert.Equal(t, tt.wantMethod, call.Method)
			assert.Equal(t, tt.wantPath, call.Path)
			assert.Equal(t, tt.wantQuery, call.Query)
			assert.Equal(t, "test-api-key", call.APIKey)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, call.Body)
			} else {
				assert.Empty(t, call.Body)
			}
		})
	}
}

func TestListWorkflows_RelaysUpstreamBody(t *testing.T) {
	_, handler := newUpstream(t, http.StatusOK, `[{"id":"1","name":"Test"}]`)

	w := serve(handler, http.MethodGet, "/api/workflows", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"success","data":[{"id":"1","name":"Test"}]}`, w.Body.String())
}

func TestForwardingRoutes_UpstreamErrors(t *testing.T) {
	routes := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodGet, "/api/workflows", ""},
		{http.MethodPost, "/api/workflows", `{"name":"bad"}`},
		{http.MethodGet, "/api/workflows/1", ""},
		{http.MethodPut, "/api/workflows/1", `{"name":"bad"}`},
		{http.MethodPost, "/api/workflows/1/execute", ""},
		{http.MethodGet, "/api/executions", ""},
	}

	statuses := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusInternalServerError,
	}

	for _, route := range routes {
		for _, status := range statuses {
			t.Run(route.method+" "+route.target+" "+http.StatusText(status), func(t *testing.T) {
				_, handler := newUpstream(t, status, `{"message":"upstream says no"}`)

				w := serve(handler, route.method, route.target, route.body)

				assert.Equal(t, http.StatusInternalServerError, w.Code)

				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "error", resp.Status)
				assert.Equal(t, "upstream says no", resp.Message)
			})
		}
	}
}

func TestCreateWorkflow_UpstreamRejectsBody(t *testing.T) {
	_, handler := newUpstream(t, http.StatusBadRequest,
		`{"message":"request/body must have required property 'connections'"}`)

	w := serve(handler, http.MethodPost, "/api/workflows", `{"name":"incomplete"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t,
		`{"status":"error","message":"request/body must have required property 'connections'"}`,
		w.Body.String())
}

func TestForwardingRoutes_UpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	baseURL := upstream.URL
	upstream.Close()

	handler := newTestHandler(t, baseURL)

	w := serve(handler, http.MethodGet, "/api/executions", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Message)
}

func TestForwardingRoutes_InvalidBody(t *testing.T) {
	fake, handler := newUpstream(t, http.StatusOK, `{}`)

	for _, target := range []string{"/api/workflows", "/api/workflows/1"} {
		method := http.MethodPost
		if target != "/api/workflows" {
			method = http.MethodPut
		}

		w := serve(handler, method, target, `{"name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"error","message":"invalid JSON body"}`, w.Body.String())
	}

	assert.Empty(t, fake.calls, "malformed bodies must not be forwarded")
}

func TestForwardingRoutes_ScalarBody(t *testing.T) {
	fake, handler := newUpstream(t, http.StatusOK, `{}`)

	for _, body := range []string{`null`, `42`, `"x"`, `true`} {
		t.Run(body, func(t *testing.T) {
			w := serve(handler, http.MethodPost, "/api/workflows", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"status":"error","message":"invalid JSON body"}`, w.Body.String())

			w = serve(handler, http.MethodPut, "/api/workflows/1", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.calls, "scalar bodies must not be forwarded")
}

func TestForwardingRoutes_ArrayBody(t *testing.T) {
	fake, handler := newUpstream(t, http.StatusOK, `{}`)

	w := serve(handler, http.MethodPost, "/api/workflows", `[{"name":"a"}]`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"a"}]`, fake.lastCall(t).Body)
}

func TestStatusHandler(t *testing.T) {
	t.Run("invalid api key", func(t *testing.T) {
		_, handler := newUpstream(t, http.StatusUnauthorized, `{"message":"unauthorized"}`)

		w := serve(handler, http.MethodGet, "/api/n8n/status", "")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, &n8n.Permissions{}, resp.Permissions)
		assert.True(t, strings.HasSuffix(resp.BaseURL, "/api/v1"))
	})

	t.Run("full access", func(t *testing.T) {
		fake, handler := newUpstream(t, http.StatusOK, `{"id":"probe"}`)

		w := serve(handler, http.MethodGet, "/api/n8n/status", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"connection": true,
			"workflows": {"read": true, "write": true},
			"executions": {"read": true},
			"credentials": {"read": true},
			"users": {"read": true}
		}`, string(mustField(t, w.Body.Bytes(), "permissions")))

		deletes := 0
		for _, call := range fake.calls {
			if call.Method == http.MethodDelete {
				deletes++
				assert.Equal(t, "/api/v1/workflows/probe", call.Path)
			}
		}
		assert.Equal(t, 1, deletes)
	})
}

func TestStatusHandler_ReportsConfiguredBaseURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	baseURL := upstream.URL + "/api/v1"
	handler := newTestHandler(t, baseURL)

	w := serve(handler, http.MethodGet, "/api/n8n/status", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"`+baseURL+`"`, string(mustField(t, w.Body.Bytes(), "baseUrl")))
}

func TestMethodNotAllowed(t *testing.T) {
	fake, handler := newUpstream(t, http.StatusOK, `{}`)

	tests := []struct {
		method string
		target string
		allow  string
	}{
		{http.MethodDelete, "/api/workflows", "GET, POST"},
		{http.MethodPost, "/api/workflows/1", "GET, PUT"},
		{http.MethodGet, "/api/workflows/1/execute", "POST"},
		{http.MethodPost, "/api/executions", "GET"},
		{http.MethodPost, "/api/n8n/status", "GET"},
		{http.MethodPost, "/health", "GET, HEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := serve(handler, tt.method, tt.target, "")

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Allow"))
			assert.Contains(t, w.Body.String(), `"status":"error"`)
		})
	}

	assert.Empty(t, fake.calls)
}

func TestNotFound(t *testing.T) {
	_, handler := newUpstream(t, http.StatusOK, `{}`)

	for _, target := range []string{"/api/unknown", "/api/workflows/1/activate", "/"} {
		w := serve(handler, http.MethodGet, target, "")

		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.JSONEq(t, `{"status":"error","message":"Cannot GET `+target+`"}`, w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	_, handler := newUpstream(t, http.StatusOK, `[]`)

	t.Run("simple request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/workflows/1", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
		assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
	})
}

func TestRequestID(t *testing.T) {
	handler := newTestHandler(t, "http://127.0.0.1:1")

	t.Run("generated", func(t *testing.T) {
		w := serve(handler, http.MethodGet, "/health", "")
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "caller-id")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "caller-id", w.Header().Get(RequestIDHeader))
	})
}

func TestParseResourcePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []string
		wantErr bool
	}{
		{name: "collection", path: "/api/workflows", want: nil},
		{name: "trailing slash", path: "/api/workflows/", want: nil},
		{name: "id", path: "/api/workflows/abc", want: []string{"abc"}},
		{name: "action", path: "/api/workflows/abc/execute", want: []string{"abc", "execute"}},
		{name: "escaped id", path: "/api/workflows/a%2Fb", want: []string{"a/b"}},
		{name: "bad escape", path: "/api/workflows/%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResourcePath(tt.path, workflowsPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func mustField(t *testing.T, body []byte, field string) json.RawMessage {
	t.Helper()

	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &obj))
	value, ok := obj[field]
	require.True(t, ok, "missing field %q", field)
	return value
}
