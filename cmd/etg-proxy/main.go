// Command etg-proxy exposes a thin HTTP facade over the ETG client: region
// search with enrichment, static hotel info, and region autocomplete, all
// cache-backed, plus health and metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hoteldesk/etg-client/pkg/cache"
	"github.com/hoteldesk/etg-client/pkg/client"
	"github.com/hoteldesk/etg-client/pkg/enrich"
	"github.com/hoteldesk/etg-client/pkg/logging"
)

type server struct {
	etg      *client.Client
	store    *cache.Store
	enricher *enrich.Enricher
	redis    *redis.Client
	logger   zerolog.Logger
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(logging.FromEnv())

	keyID := os.Getenv("ETG_KEY_ID")
	apiKey := os.Getenv("ETG_API_KEY")
	if keyID == "" || apiKey == "" {
		logger.Fatal().Msg("ETG_KEY_ID and ETG_API_KEY are required")
	}

	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("redis", redisURL).Msg("Connected to Redis")

	cfg := client.DefaultConfig(keyID, apiKey)
	if baseURL := os.Getenv("ETG_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	etg, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create ETG client")
	}

	store := cache.NewStore(redisClient, getEnv("CACHE_VERSION", "v1"))
	enricher := enrich.New(etg, store, enrich.DefaultConfig())

	srv := &server{
		etg:      etg,
		store:    store,
		enricher: enricher,
		redis:    redisClient,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.handleHealth)
	r.Get("/readyz", srv.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/search/region", srv.handleRegionSearch)
	r.Get("/api/hotels/{hotelID}", srv.handleHotelInfo)
	r.Get("/api/multicomplete", srv.handleMulticomplete)

	addr := ":" + port
	logger.Info().Str("addr", addr).Msg("Starting ETG proxy server")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.redis.Ping(r.Context()).Err(); err != nil {
		http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// searchRequest is the proxy's region search input.
type searchRequest struct {
	RegionID  int                 `json:"region_id"`
	Checkin   string              `json:"checkin"`
	Checkout  string              `json:"checkout"`
	Residency string              `json:"residency"`
	Language  string              `json:"language"`
	Currency  string              `json:"currency"`
	Guests    []client.GuestGroup `json:"guests"`
}

// searchResponse carries the live rates with static enrichment attached.
type searchResponse struct {
	SearchID string                 `json:"search_id"`
	RegionID int                    `json:"region_id"`
	Cached   bool                   `json:"cached"`
	Hotels   []enrich.EnrichedHotel `json:"hotels"`
}

func (s *server) handleRegionSearch(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req := client.RegionSearchRequest{
		RegionID:  in.RegionID,
		Checkin:   in.Checkin,
		Checkout:  in.Checkout,
		Residency: in.Residency,
		Language:  in.Language,
		Currency:  in.Currency,
		Guests:    in.Guests,
	}

	ctx := r.Context()
	key := cache.SearchKey(req.CacheFields())

	var result client.RegionSearchResult
	cached := false
	if entry, err := s.store.Get(ctx, key); err == nil {
		if err := json.Unmarshal(entry.Payload, &result); err == nil {
			cached = true
		}
	}

	if !cached {
		live, err := s.etg.SearchHotelsByRegion(ctx, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		result = *live

		// Cache the vendor payload verbatim so unmodeled fields survive.
		if err := s.store.Put(ctx, key, live.Raw, cache.TTLSearch); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache search result")
		}
	}

	enriched := s.enricher.EnrichHotels(ctx, result.Hotels, req.Language)

	s.writeJSON(w, searchResponse{
		SearchID: result.SearchID,
		RegionID: result.RegionID,
		Cached:   cached,
		Hotels:   enriched,
	})
}

func (s *server) handleHotelInfo(w http.ResponseWriter, r *http.Request) {
	hotelID := chi.URLParam(r, "hotelID")
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}

	ctx := r.Context()
	if payload, err := s.store.GetStatic(ctx, hotelID, language); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
		return
	}

	hotel, err := s.etg.GetHotelInformation(ctx, hotelID, language)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.PutStatic(ctx, hotelID, language, hotel.Raw); err != nil {
		s.logger.Warn().Err(err).Str("hotel_id", hotelID).Msg("Failed to cache static hotel data")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(hotel.Raw)
}

func (s *server) handleMulticomplete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, "query parameter is required", http.StatusBadRequest)
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}

	ctx := r.Context()
	key := cache.AutocompleteKey(query, language)

	if entry, err := s.store.Get(ctx, key); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(entry.Payload)
		return
	}

	result, err := s.etg.Multicomplete(ctx, query, language)
	if err != nil {
		s.writeError(w, err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := s.store.Put(ctx, key, payload, cache.TTLAutocomplete); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache autocomplete result")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

type errorResponse struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCategory(apiErr.Category))
	json.NewEncoder(w).Encode(errorResponse{
		Category: string(apiErr.Category),
		Message:  apiErr.Message,
	})
}

// statusForCategory maps client error categories onto proxy HTTP statuses.
func statusForCategory(c client.Category) int {
	switch c {
	case client.CategoryValidation:
		return http.StatusBadRequest
	case client.CategoryAuth:
		return http.StatusUnauthorized
	case client.CategoryPermission:
		return http.StatusForbidden
	case client.CategoryNotFound:
		return http.StatusNotFound
	case client.CategoryRateLimit:
		return http.StatusTooManyRequests
	case client.CategoryTimeout:
		return http.StatusGatewayTimeout
	case client.CategoryNetwork, client.CategoryExternal, client.CategoryServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
