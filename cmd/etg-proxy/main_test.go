package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hoteldesk/etg-client/internal/testutil"
	"github.com/hoteldesk/etg-client/pkg/cache"
	"github.com/hoteldesk/etg-client/pkg/client"
	"github.com/hoteldesk/etg-client/pkg/enrich"
)

// setupTestRedis connects to a local Redis and skips when unavailable; the
// build-tagged integration suite uses testcontainers-go instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		redisClient.FlushDB(context.Background())
		redisClient.Close()
	})

	return redisClient
}

func newTestServer(t *testing.T, mock *testutil.MockETG) *server {
	t.Helper()

	cfg := client.DefaultConfig("test-key-id", "test-api-key")
	cfg.BaseURL = mock.URL()
	etg, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create ETG client: %v", err)
	}

	store := cache.NewStore(setupTestRedis(t), "test")
	return &server{
		etg:      etg,
		store:    store,
		enricher: enrich.New(etg, store, enrich.Config{BatchSize: 5}),
		logger:   zerolog.Nop(),
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := &server{}
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestRegionSearchHandler(t *testing.T) {
	mock := testutil.NewMockETG()
	defer mock.Close()
	mock.SetData("/search/serp/region/", testutil.RegionSearchData("s-1", 4898, "hotel_a", "hotel_b"))
	mock.SetData("/hotel/info/", testutil.StaticHotelData("hotel_a", "Hotel A"))

	srv := newTestServer(t, mock)

	body := `{
		"region_id": 4898,
		"checkin": "2025-03-15",
		"checkout": "2025-03-17",
		"residency": "us",
		"language": "en",
		"currency": "USD",
		"guests": [{"adults": 2}]
	}`

	doSearch := func() searchResponse {
		req := httptest.NewRequest("POST", "/api/search/region", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		srv.handleRegionSearch(w, req)

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			t.Fatalf("status %d: %s", resp.StatusCode, raw)
		}

		var out searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return out
	}

	first := doSearch()
	if first.Cached {
		t.Error("first search reported cached")
	}
	if len(first.Hotels) != 2 {
		t.Fatalf("hotels = %d, want 2", len(first.Hotels))
	}
	if !first.Hotels[0].HasStaticInfo {
		t.Error("enrichment missing on first hotel")
	}

	second := doSearch()
	if !second.Cached {
		t.Error("second search not served from cache")
	}
	if n := mock.RequestCount("/search/serp/region/"); n != 1 {
		t.Errorf("upstream searches = %d, want 1", n)
	}
}

func TestRegionSearchHandler_InvalidBody(t *testing.T) {
	srv := &server{}
	req := httptest.NewRequest("POST", "/api/search/region", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	srv.handleRegionSearch(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Result().StatusCode)
	}
}

func TestRegionSearchHandler_UpstreamError(t *testing.T) {
	mock := testutil.NewMockETG()
	defer mock.Close()
	mock.SetError("/search/serp/region/", http.StatusForbidden, "insufficient_permissions")

	srv := newTestServer(t, mock)

	body := `{"region_id": 1, "checkin": "2025-03-15", "checkout": "2025-03-17", "residency": "us", "guests": [{"adults": 2}]}`
	req := httptest.NewRequest("POST", "/api/search/region", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleRegionSearch(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	var out errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if out.Category != string(client.CategoryPermission) {
		t.Errorf("category = %q, want authorization", out.Category)
	}
}

func TestStatusForCategory(t *testing.T) {
	tests := []struct {
		category client.Category
		want     int
	}{
		{client.CategoryValidation, http.StatusBadRequest},
		{client.CategoryAuth, http.StatusUnauthorized},
		{client.CategoryPermission, http.StatusForbidden},
		{client.CategoryNotFound, http.StatusNotFound},
		{client.CategoryRateLimit, http.StatusTooManyRequests},
		{client.CategoryTimeout, http.StatusGatewayTimeout},
		{client.CategoryNetwork, http.StatusBadGateway},
		{client.CategoryExternal, http.StatusBadGateway},
		{client.CategoryServer, http.StatusBadGateway},
		{client.CategoryDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := statusForCategory(tt.category); got != tt.want {
				t.Errorf("statusForCategory(%s) = %d, want %d", tt.category, got, tt.want)
			}
		})
	}
}
