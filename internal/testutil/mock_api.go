// Package testutil provides testing utilities for the PUT sync tooling.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/ratelimit"
)

// DefaultToken is the session token the mock authentication endpoint issues.
const DefaultToken = "mock-session-token"

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockAPI is a configurable fake of the Itsperfect API for testing. It
// serves the authentication endpoint, a paginated PUT listing and per-PUT
// line listings, with the rate limit headers a healthy tenant sees.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	AuthCount         int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.URL.Path == "/authentication" {
			mock.AuthCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.AuthCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPutsPages serves the open-PUT listing across the given pages, one slice
// of PUT ids per page, with pagination headers.
func (m *MockAPI) SetPutsPages(pages ...[]string) {
	m.SetHandler("/puts", func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 || page > len(pages) {
			page = 1
		}

		setBucketHeaders(w.Header(), healthyBucket())
		w.Header().Set(puts.HeaderPaginationCurrentPage, strconv.Itoa(page))
		w.Header().Set(puts.HeaderPaginationPageCount, strconv.Itoa(len(pages)))
		w.Header().Set("Content-Type", "application/json")

		records := make([]map[string]string, 0, len(pages[page-1]))
		for _, id := range pages[page-1] {
			records = append(records, map[string]string{"id": id})
		}
		json.NewEncoder(w).Encode(records)
	})
}

// SetPutLines serves the line listing of one PUT from raw JSON.
func (m *MockAPI) SetPutLines(putID, body string) {
	m.SetResponse("/puts/"+putID+"/lines", NewHealthyResponse(body))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetAuthCount returns the number of authentication requests.
func (m *MockAPI) GetAuthCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AuthCount
}

// defaultHandler serves authentication and an empty healthy response for
// anything not configured.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/authentication" {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"token":      DefaultToken,
			"expires_in": 3600,
		})
		return
	}

	setBucketHeaders(w.Header(), healthyBucket())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`[]`))
}

// NewHealthyResponse creates a 200 OK response with a healthy token bucket.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    withBucket(healthyBucket(), map[string]string{"Content-Type": "application/json"}),
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Too many requests"}`,
		Headers:    withBucket(exhaustedBucket(), map[string]string{"Content-Type": "application/json"}),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers:    withBucket(healthyBucket(), map[string]string{"Content-Type": "application/json"}),
	}
}

func healthyBucket() ratelimit.BucketState {
	return ratelimit.BucketState{Size: 100, Marbles: 10, Remaining: 90}
}

func exhaustedBucket() ratelimit.BucketState {
	return ratelimit.BucketState{Size: 100, Marbles: 100, Remaining: 0}
}

func setBucketHeaders(h http.Header, state ratelimit.BucketState) {
	h.Set(ratelimit.HeaderBucketSize, strconv.Itoa(state.Size))
	h.Set(ratelimit.HeaderMarblesInBucket, strconv.Itoa(state.Marbles))
	h.Set(ratelimit.HeaderRemainingRequests, strconv.Itoa(state.Remaining))
}

func withBucket(state ratelimit.BucketState, headers map[string]string) map[string]string {
	headers[ratelimit.HeaderBucketSize] = strconv.Itoa(state.Size)
	headers[ratelimit.HeaderMarblesInBucket] = strconv.Itoa(state.Marbles)
	headers[ratelimit.HeaderRemainingRequests] = strconv.Itoa(state.Remaining)
	return headers
}
