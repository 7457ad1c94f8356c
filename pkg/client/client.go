// Package client provides the core ETG (RateHawk/WorldOTA) B2B API client
// with per-endpoint rate limiting, per-operation timeout budgets, and
// normalized error shaping.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hoteldesk/etg-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for ETG client operations.
var (
	etgRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etg_requests_total",
		Help: "Total ETG requests by endpoint and status",
	}, []string{"endpoint", "status"})

	etgRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etg_request_duration_seconds",
		Help:    "ETG request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"endpoint"})

	etgErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etg_errors_total",
		Help: "Total ETG errors by category",
	}, []string{"category"})
)

// Vendor endpoint paths.
const (
	EndpointHotelInfo     = "/hotel/info/"
	EndpointSearchRegion  = "/search/serp/region/"
	EndpointSearchHotel   = "/search/hp/"
	EndpointMulticomplete = "/search/multicomplete/"
	EndpointPrebook       = "/hotel/prebook/"
	EndpointBookingForm   = "/hotel/order/booking/form/"
	EndpointBookingFinish = "/hotel/order/booking/finish/"
	EndpointBookingStatus = "/hotel/order/booking/finish/status/"
	EndpointOrderInfo     = "/hotel/order/info/"
	EndpointOrderCancel   = "/hotel/order/cancel/"
)

// DefaultBaseURL is the production ETG B2B API root.
const DefaultBaseURL = "https://api.worldota.net/api/b2b/v3"

// Per-operation timeout budgets. Search and booking calls get the larger
// budget; everything else the default.
const (
	timeoutDefault = 15 * time.Second
	timeoutSearch  = 30 * time.Second
	timeoutBooking = 30 * time.Second
)

func opTimeout(endpoint string) time.Duration {
	switch endpoint {
	case EndpointSearchRegion, EndpointSearchHotel:
		return timeoutSearch
	case EndpointPrebook, EndpointBookingFinish, EndpointBookingForm:
		return timeoutBooking
	default:
		return timeoutDefault
	}
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root (default: DefaultBaseURL).
	BaseURL string

	// KeyID is the partner key id (HTTP basic auth username).
	KeyID string

	// APIKey is the partner API key (HTTP basic auth password).
	APIKey string

	// Language is the default response language when an operation omits one.
	Language string

	// Limits are the per-endpoint quotas (default: ratelimit.DefaultLimits).
	Limits map[string]ratelimit.Limit
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(keyID, apiKey string) Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		KeyID:    keyID,
		APIKey:   apiKey,
		Language: "en",
		Limits:   ratelimit.DefaultLimits(),
	}
}

// Client is the ETG API client.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new ETG client.
func New(cfg Config) (*Client, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("key id is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Limits == nil {
		cfg.Limits = ratelimit.DefaultLimits()
	}

	logger := log.With().Str("component", "etg-client").Logger()

	return &Client{
		httpClient: &http.Client{},
		limiter:    ratelimit.NewLimiter(cfg.Limits, logger),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Limiter returns the client's rate limiter. Components dispatching their
// own calls against the same vendor quota share it.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// envelope is the vendor response wrapper around every payload.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Status string          `json:"status"`
	Error  string          `json:"error"`
}

// call performs one authenticated POST to an ETG endpoint: rate limit
// admission (waiting once for a freed slot when the quota is exhausted),
// dispatch with the operation's timeout budget, envelope unwrap, and error
// normalization. When out is non-nil, the data payload is decoded into it.
// The raw data payload is returned for callers that cache verbatim.
func (c *Client) call(ctx context.Context, endpoint string, body map[string]any, out any) (json.RawMessage, error) {
	start := time.Now()
	defer func() {
		etgRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	// Rate limit admission. A full window is recovered locally by waiting,
	// not surfaced to the caller.
	if decision := c.limiter.Check(endpoint); !decision.Allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Dur("wait", decision.Wait).
			Msg("Endpoint quota exhausted - waiting before dispatch")
		etgRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()

		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			etgErrorsTotal.WithLabelValues(string(CategoryTimeout)).Inc()
			return nil, &APIError{
				Operation: endpoint,
				Category:  CategoryTimeout,
				Message:   "cancelled while waiting for rate limit slot",
				Err:       err,
			}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		// Request could not be constructed; nothing was sent.
		etgErrorsTotal.WithLabelValues(string(CategoryValidation)).Inc()
		return nil, &APIError{
			Operation: endpoint,
			Category:  CategoryValidation,
			Message:   "encode request body",
			Err:       err,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, opTimeout(endpoint))
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		etgErrorsTotal.WithLabelValues(string(CategoryValidation)).Inc()
		return nil, &APIError{
			Operation: endpoint,
			Category:  CategoryValidation,
			Message:   "build request",
			Err:       err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.config.KeyID, c.config.APIKey)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Msg("Executing ETG request")

	resp, err := c.httpClient.Do(req)

	// The request was handed to the transport, so it consumed vendor quota
	// even when the response was lost. Locally rejected attempts never
	// reach this point.
	c.limiter.Record(endpoint)

	if err != nil {
		category := classifyTransport(err)
		c.logger.Error().Err(err).
			Str("endpoint", endpoint).
			Str("category", string(category)).
			Msg("ETG request failed in transport")
		etgErrorsTotal.WithLabelValues(string(category)).Inc()
		etgRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, &APIError{
			Operation: endpoint,
			Category:  category,
			Message:   "request sent but no response arrived",
			Err:       err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		etgErrorsTotal.WithLabelValues(string(CategoryNetwork)).Inc()
		return nil, &APIError{
			Operation:  endpoint,
			Category:   CategoryNetwork,
			StatusCode: resp.StatusCode,
			Message:    "read response body",
			Err:        err,
		}
	}

	etgRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		category := categoryForStatus(resp.StatusCode)
		message := resp.Status
		if decodeErr == nil && env.Error != "" {
			message = env.Error
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("category", string(category)).
			Str("upstream_error", message).
			Msg("ETG request error")
		etgErrorsTotal.WithLabelValues(string(category)).Inc()
		return nil, &APIError{
			Operation:  endpoint,
			Category:   category,
			StatusCode: resp.StatusCode,
			Message:    message,
			Raw:        raw,
		}
	}

	if decodeErr != nil {
		etgErrorsTotal.WithLabelValues(string(CategoryExternal)).Inc()
		return nil, &APIError{
			Operation:  endpoint,
			Category:   CategoryExternal,
			StatusCode: resp.StatusCode,
			Message:    "decode response envelope",
			Raw:        raw,
			Err:        decodeErr,
		}
	}

	if env.Status != "ok" {
		message := env.Error
		if message == "" {
			message = fmt.Sprintf("upstream status %q", env.Status)
		}
		etgErrorsTotal.WithLabelValues(string(CategoryExternal)).Inc()
		return nil, &APIError{
			Operation:  endpoint,
			Category:   CategoryExternal,
			StatusCode: resp.StatusCode,
			Message:    message,
			Raw:        raw,
		}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			etgErrorsTotal.WithLabelValues(string(CategoryExternal)).Inc()
			return nil, &APIError{
				Operation:  endpoint,
				Category:   CategoryExternal,
				StatusCode: resp.StatusCode,
				Message:    "decode data payload",
				Raw:        raw,
				Err:        err,
			}
		}
	}

	return env.Data, nil
}

// lang returns the given language or the configured default.
func (c *Client) lang(language string) string {
	if language == "" {
		return c.config.Language
	}
	return language
}

// GetHotelInformation fetches the static descriptor of a single hotel.
// Safe to retry: read-only upstream.
func (c *Client) GetHotelInformation(ctx context.Context, hotelID, language string) (*StaticHotel, error) {
	if strings.TrimSpace(hotelID) == "" {
		return nil, validationError(EndpointHotelInfo, fmt.Errorf("hotel id is required"))
	}

	body := map[string]any{
		"id":       hotelID,
		"language": c.lang(language),
	}

	var hotel StaticHotel
	raw, err := c.call(ctx, EndpointHotelInfo, body, &hotel)
	if err != nil {
		return nil, err
	}
	hotel.Raw = raw
	return &hotel, nil
}

// SearchHotelsByRegion runs a region search. Each returned hotel surfaces
// its first rate's match hash for a later prebook.
func (c *Client) SearchHotelsByRegion(ctx context.Context, req RegionSearchRequest) (*RegionSearchResult, error) {
	if req.RegionID <= 0 {
		return nil, validationError(EndpointSearchRegion, fmt.Errorf("region id is required"))
	}
	if err := ValidateStayDates(req.Checkin, req.Checkout); err != nil {
		return nil, validationError(EndpointSearchRegion, err)
	}
	if len(req.Guests) == 0 {
		return nil, validationError(EndpointSearchRegion, ErrMissingGuests)
	}

	body := map[string]any{
		"region_id": req.RegionID,
		"checkin":   req.Checkin,
		"checkout":  req.Checkout,
		"residency": strings.ToUpper(req.Residency),
		"language":  c.lang(req.Language),
		"guests":    req.Guests,
		"currency":  req.Currency,
	}

	var result RegionSearchResult
	raw, err := c.call(ctx, EndpointSearchRegion, body, &result)
	if err != nil {
		return nil, err
	}
	result.Raw = raw
	return &result, nil
}

// GetHotelWithRates runs a single-hotel rates search. Returns a not-found
// error when the vendor result set is empty.
func (c *Client) GetHotelWithRates(ctx context.Context, req HotelSearchRequest) (*HotelRates, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, validationError(EndpointSearchHotel, fmt.Errorf("hotel id is required"))
	}
	if err := ValidateStayDates(req.Checkin, req.Checkout); err != nil {
		return nil, validationError(EndpointSearchHotel, err)
	}
	if len(req.Guests) == 0 {
		return nil, validationError(EndpointSearchHotel, ErrMissingGuests)
	}

	body := map[string]any{
		"id":        req.ID,
		"checkin":   req.Checkin,
		"checkout":  req.Checkout,
		"residency": strings.ToUpper(req.Residency),
		"language":  c.lang(req.Language),
		"guests":    req.Guests,
		"currency":  req.Currency,
	}

	var result struct {
		Hotels []HotelRates `json:"hotels"`
	}
	if _, err := c.call(ctx, EndpointSearchHotel, body, &result); err != nil {
		return nil, err
	}
	if len(result.Hotels) == 0 {
		return nil, &APIError{
			Operation: EndpointSearchHotel,
			Category:  CategoryNotFound,
			Message:   ErrHotelNotFound.Error(),
			Err:       ErrHotelNotFound,
		}
	}
	return &result.Hotels[0], nil
}

// Multicomplete resolves a free-text destination query to regions.
func (c *Client) Multicomplete(ctx context.Context, query, language string) (*MulticompleteResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationError(EndpointMulticomplete, fmt.Errorf("query is required"))
	}

	body := map[string]any{
		"query":    query,
		"language": c.lang(language),
	}

	var result MulticompleteResult
	if _, err := c.call(ctx, EndpointMulticomplete, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PrebookHotel locks the price of a rate identified by its match hash.
// STEP 1 of the booking flow; the returned book hash feeds FinishBooking.
// Failure is terminal for this attempt (price or availability changed).
func (c *Client) PrebookHotel(ctx context.Context, matchHash, residency string) (*PrebookResult, error) {
	if strings.TrimSpace(matchHash) == "" {
		return nil, validationError(EndpointPrebook, fmt.Errorf("match hash is required"))
	}

	body := map[string]any{
		"hash":      matchHash,
		"language":  c.config.Language,
		"residency": strings.ToUpper(residency),
	}

	var data struct {
		Hotels       []HotelRates `json:"hotels"`
		PriceChanged bool         `json:"price_changed"`
	}
	raw, err := c.call(ctx, EndpointPrebook, body, &data)
	if err != nil {
		return nil, err
	}

	for _, hotel := range data.Hotels {
		for _, rate := range hotel.Rates {
			if rate.BookHash != "" {
				return &PrebookResult{
					BookHash:     rate.BookHash,
					PriceChanged: data.PriceChanged,
					Raw:          raw,
				}, nil
			}
		}
	}

	return nil, &APIError{
		Operation: EndpointPrebook,
		Category:  CategoryExternal,
		Message:   "prebook response carried no book_hash",
		Raw:       raw,
	}
}

// GetBookingForm fetches the required guest-field schema for a prebooked
// rate. STEP 2 of the booking flow, optional.
func (c *Client) GetBookingForm(ctx context.Context, bookHash, language string) (*BookingForm, error) {
	if strings.TrimSpace(bookHash) == "" {
		return nil, validationError(EndpointBookingForm, ErrMissingBookHash)
	}

	body := map[string]any{
		"hash":     bookHash,
		"language": c.lang(language),
	}

	var form BookingForm
	raw, err := c.call(ctx, EndpointBookingForm, body, &form)
	if err != nil {
		return nil, err
	}
	form.Raw = raw
	return &form, nil
}

// FinishBooking submits the finish call, STEP 3 of the booking flow. The
// request is one of the two FinishRequest shapes; invalid input is rejected
// locally with no upstream call. The vendor completes asynchronously: the
// returned status is usually StatusProcessing and the caller must poll
// GetBookingStatus. NOT retried automatically - financial side effects.
func (c *Client) FinishBooking(ctx context.Context, req FinishRequest) (*FinishResult, error) {
	body, err := req.finishBody(c.config.Language)
	if err != nil {
		return nil, validationError(EndpointBookingFinish, err)
	}

	var result FinishResult
	if _, err := c.call(ctx, EndpointBookingFinish, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBookingStatus polls the asynchronous booking status, STEP 4 of the
// booking flow. Safe to retry: read-only upstream.
func (c *Client) GetBookingStatus(ctx context.Context, orderID int64) (*StatusResult, error) {
	if orderID <= 0 {
		return nil, validationError(EndpointBookingStatus, fmt.Errorf("order id is required"))
	}

	body := map[string]any{
		"order_id": orderID,
		"language": c.config.Language,
	}

	var result StatusResult
	raw, err := c.call(ctx, EndpointBookingStatus, body, &result)
	if err != nil {
		return nil, err
	}
	result.Raw = raw
	return &result, nil
}

// GetOrderInfo fetches the vendor's view of an order. Safe to retry.
func (c *Client) GetOrderInfo(ctx context.Context, orderID int64) (json.RawMessage, error) {
	if orderID <= 0 {
		return nil, validationError(EndpointOrderInfo, fmt.Errorf("order id is required"))
	}

	body := map[string]any{
		"order_id": orderID,
		"language": c.config.Language,
	}
	return c.call(ctx, EndpointOrderInfo, body, nil)
}

// CancelOrder cancels an order. Penalty rules are vendor-side and opaque.
// NOT retried automatically - financial side effects.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) (json.RawMessage, error) {
	if orderID <= 0 {
		return nil, validationError(EndpointOrderCancel, fmt.Errorf("order id is required"))
	}

	body := map[string]any{
		"order_id": orderID,
		"language": c.config.Language,
	}
	return c.call(ctx, EndpointOrderCancel, body, nil)
}
