// Package testutil provides testing utilities for the ETG API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockETG is a configurable mock ETG API server speaking the vendor's
// response envelope.
type MockETG struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount map[string]int
	lastBody     map[string][]byte
	lastAuthUser string
	lastAuthPass string
}

// NewMockETG creates a new mock ETG server.
func NewMockETG() *MockETG {
	mock := &MockETG{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		requestCount: make(map[string]int),
		lastBody:     make(map[string][]byte),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}

		mock.mu.Lock()
		mock.requestCount[r.URL.Path]++
		mock.lastBody[r.URL.Path] = body
		if user, pass, ok := r.BasicAuth(); ok {
			mock.lastAuthUser = user
			mock.lastAuthPass = pass
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default: empty ok envelope.
		WriteEnvelope(w, http.StatusOK, json.RawMessage(`{}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockETG) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockETG) Close() {
	m.server.Close()
}

// Reset clears tracking counters and recorded bodies.
func (m *MockETG) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = make(map[string]int)
	m.lastBody = make(map[string][]byte)
	m.lastAuthUser = ""
	m.lastAuthPass = ""
}

// SetHandler sets a custom handler for an endpoint path.
func (m *MockETG) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetData configures an ok envelope response with the given data payload.
// data may be any JSON-marshalable value.
func (m *MockETG) SetData(path string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock data: %v", err))
	}
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteEnvelope(w, http.StatusOK, payload)
	})
}

// SetError configures an error envelope response with an HTTP status and a
// vendor error code.
func (m *MockETG) SetError(path string, httpStatus int, errorCode string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		fmt.Fprintf(w, `{"data":null,"status":"error","error":%q}`, errorCode)
	})
}

// SetStatusSequence scripts the booking status endpoint to return the given
// statuses in order, repeating the last one once exhausted.
func (m *MockETG) SetStatusSequence(path string, statuses []string) {
	var mu sync.Mutex
	idx := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		status := statuses[len(statuses)-1]
		if idx < len(statuses) {
			status = statuses[idx]
			idx++
		}
		mu.Unlock()
		WriteEnvelope(w, http.StatusOK, json.RawMessage(fmt.Sprintf(`{"status":%q}`, status)))
	})
}

// RequestCount returns the number of requests made to a path.
func (m *MockETG) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount[path]
}

// TotalRequests returns the number of requests made to any path.
func (m *MockETG) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requestCount {
		total += n
	}
	return total
}

// LastBody returns the most recent request body received on a path.
func (m *MockETG) LastBody(path string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBody[path]
}

// LastBasicAuth returns the credentials of the most recent authenticated
// request.
func (m *MockETG) LastBasicAuth() (user, pass string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAuthUser, m.lastAuthPass
}

// WriteEnvelope writes a vendor ok envelope with the given data payload.
func WriteEnvelope(w http.ResponseWriter, httpStatus int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	envelope := struct {
		Data   json.RawMessage `json:"data"`
		Status string          `json:"status"`
		Error  *string         `json:"error"`
	}{Data: data, Status: "ok"}
	_ = json.NewEncoder(w).Encode(envelope)
}

// RegionSearchData builds a region search data payload with one hotel per
// id, each carrying a single rate with a deterministic match hash.
func RegionSearchData(searchID string, regionID int, hotelIDs ...string) map[string]any {
	hotels := make([]map[string]any, 0, len(hotelIDs))
	for _, id := range hotelIDs {
		hotels = append(hotels, map[string]any{
			"id": id,
			"rates": []map[string]any{
				{"match_hash": "m-" + id, "room_name": "Standard Room"},
			},
		})
	}
	return map[string]any{
		"hotels":    hotels,
		"search_id": searchID,
		"region_id": regionID,
	}
}

// PrebookData builds a prebook data payload holding a single book hash.
func PrebookData(bookHash string) map[string]any {
	return map[string]any{
		"hotels": []map[string]any{
			{
				"id": "prebooked",
				"rates": []map[string]any{
					{"book_hash": bookHash},
				},
			},
		},
		"price_changed": false,
	}
}

// StaticHotelData builds a static hotel descriptor payload.
func StaticHotelData(id, name string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"address":     "3600 S Las Vegas Blvd",
		"star_rating": 4,
		"amenity_groups": []map[string]any{
			{"group_name": "General", "amenities": []string{"wifi", "parking"}},
		},
		"images": []string{id + "-1.jpg", id + "-2.jpg"},
	}
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
