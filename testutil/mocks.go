package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockSlackServer creates a test server that mocks Slack Web API responses
type MockSlackServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockSlackServer creates a new mock Slack API server
func NewMockSlackServer(t *testing.T) *MockSlackServer {
	t.Helper()
	m := &MockSlackServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockHistoryResponse adds a handler for /conversations.history returning the given messages
func (m *MockSlackServer) MockHistoryResponse(messages []map[string]string) {
	m.Handlers["/conversations.history"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"ok":       true,
			"messages": messages,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockAPIError adds a handler for the given endpoint returning ok=false with an error code
func (m *MockSlackServer) MockAPIError(endpoint, code string) {
	m.Handlers[endpoint] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": code}) //nolint:errcheck // test mock response
	}
}

// MockOK adds a handler for the given endpoint returning a bare ok=true envelope
func (m *MockSlackServer) MockOK(endpoint string) {
	m.Handlers[endpoint] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true}) //nolint:errcheck // test mock response
	}
}
