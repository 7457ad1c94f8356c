package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Category classifies a normalized API error.
type Category string

const (
	// CategoryValidation covers input rejected locally or by the vendor.
	CategoryValidation Category = "validation"

	// CategoryAuth covers failed authentication (bad key id / API key).
	CategoryAuth Category = "authentication"

	// CategoryPermission covers authenticated but forbidden calls.
	CategoryPermission Category = "authorization"

	// CategoryNotFound covers missing hotels, orders, or regions.
	CategoryNotFound Category = "not_found"

	// CategoryRateLimit covers vendor-side quota rejections.
	CategoryRateLimit Category = "rate_limit_exceeded"

	// CategoryExternal covers vendor error responses with no closer mapping.
	CategoryExternal Category = "external_api_error"

	// CategoryDatabase covers failures of the persistence backend.
	CategoryDatabase Category = "database_error"

	// CategoryTimeout covers requests that were sent but timed out.
	CategoryTimeout Category = "timeout"

	// CategoryNetwork covers requests sent with no response arriving.
	CategoryNetwork Category = "network"

	// CategoryServer is the catch-all for vendor 5xx responses.
	CategoryServer Category = "server"
)

// Local validation sentinels. These are rejected before any upstream call.
var (
	ErrInvalidDateRange      = errors.New("checkout date must be after checkin date")
	ErrMissingBookHash       = errors.New("book hash is required")
	ErrMissingPartnerOrderID = errors.New("partner_order_id is required")
	ErrMissingGuests         = errors.New("at least one guest is required")
	ErrMissingPaymentType    = errors.New("payment_type is required")
	ErrInvalidPaymentType    = errors.New("payment_type must be one of deposit, now, hotel")
	ErrHotelNotFound         = errors.New("hotel not found in search results")
)

// APIError is the normalized error shape for every failure this client
// surfaces: local validation, vendor error responses, and transport errors.
type APIError struct {
	// Operation is the endpoint path the failure belongs to.
	Operation string

	// Category classifies the failure.
	Category Category

	// StatusCode is the HTTP status, 0 when no response arrived.
	StatusCode int

	// Message is the upstream (or local) human-readable message.
	Message string

	// Raw is the raw upstream payload for diagnostics, if any.
	Raw []byte

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("etg %s error on %s (status %d): %s",
			e.Category, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("etg %s error on %s: %s", e.Category, e.Operation, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely retry. Booking-mutating
// calls are never retried by this client itself; this signal is for callers.
func (e *APIError) Retryable() bool {
	switch e.Category {
	case CategoryTimeout, CategoryNetwork, CategoryRateLimit, CategoryServer, CategoryDatabase:
		return true
	default:
		return false
	}
}

// RetryAfter suggests how long to wait before retrying. Zero for
// non-retryable categories.
func (e *APIError) RetryAfter() time.Duration {
	switch e.Category {
	case CategoryRateLimit:
		return 10 * time.Second
	case CategoryServer:
		return 5 * time.Second
	case CategoryTimeout, CategoryNetwork:
		return 2 * time.Second
	case CategoryDatabase:
		return 1 * time.Second
	default:
		return 0
	}
}

// categoryForStatus maps an HTTP status to an error category.
func categoryForStatus(status int) Category {
	switch {
	case status == http.StatusBadRequest:
		return CategoryValidation
	case status == http.StatusUnauthorized:
		return CategoryAuth
	case status == http.StatusForbidden:
		return CategoryPermission
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusTooManyRequests:
		return CategoryRateLimit
	case status >= 500:
		return CategoryServer
	case status >= 400:
		return CategoryExternal
	default:
		return CategoryExternal
	}
}

// classifyTransport categorizes an error from a request that was handed to
// the transport but yielded no response.
func classifyTransport(err error) Category {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	return CategoryNetwork
}

// validationError wraps a local validation sentinel into the normalized
// shape without any upstream call having been made.
func validationError(operation string, err error) *APIError {
	return &APIError{
		Operation: operation,
		Category:  CategoryValidation,
		Message:   err.Error(),
		Err:       err,
	}
}
