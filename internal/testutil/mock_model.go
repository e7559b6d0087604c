// Package testutil provides testing utilities for the recsys gateway.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockModelResponse defines the behavior for one mock upstream answer.
type MockModelResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockModel is a configurable mock upstream ranking model.
//
// By default it answers POST /predict with the inbound meta echoed back and
// the item ids configured for the request's user_id. Users without
// configured items get an empty list.
type MockModel struct {
	server *httptest.Server

	mu       sync.RWMutex
	items    map[string][]string
	queue    []MockModelResponse
	nullData bool

	// Tracking
	RequestCount int
	LastBody     []byte
}

// NewMockModel creates a new mock upstream model server.
func NewMockModel() *MockModel {
	mock := &MockModel{items: make(map[string][]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", mock.handlePredict)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockModel) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockModel) Close() {
	m.server.Close()
}

// SetItems configures the ranking returned for userID.
func (m *MockModel) SetItems(userID string, items ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID] = items
}

// SetNullData makes the model answer without jsonData.
func (m *MockModel) SetNullData(null bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nullData = null
}

// Enqueue queues canned responses served before the default behavior,
// one per request.
func (m *MockModel) Enqueue(resps ...MockModelResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resps...)
}

// GetRequestCount returns the number of requests made to /predict.
func (m *MockModel) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastBody returns the body of the last /predict request.
func (m *MockModel) GetLastBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.LastBody...)
}

func (m *MockModel) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.RequestCount++
	m.LastBody = body
	var canned *MockModelResponse
	if len(m.queue) > 0 {
		canned = &m.queue[0]
		m.queue = m.queue[1:]
	}
	nullData := m.nullData
	m.mu.Unlock()

	if canned != nil {
		if canned.Delay > 0 {
			time.Sleep(canned.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(canned.StatusCode)
		if canned.Body != "" {
			w.Write([]byte(canned.Body))
		}
		return
	}

	var in struct {
		Meta     json.RawMessage `json:"meta"`
		JSONData struct {
			UserID string `json:"user_id"`
		} `json:"jsonData"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	out := map[string]any{"meta": in.Meta}
	if !nullData {
		m.mu.RLock()
		items := m.items[in.JSONData.UserID]
		m.mu.RUnlock()
		if items == nil {
			items = []string{}
		}
		out["jsonData"] = map[string]any{"item_ids": items}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockModelResponse {
	return MockModelResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockModelResponse {
	return MockModelResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockModelResponse {
	return MockModelResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "bad request"}`,
	}
}
