package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestCategoryForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Category
	}{
		{http.StatusBadRequest, CategoryValidation},
		{http.StatusUnauthorized, CategoryAuth},
		{http.StatusForbidden, CategoryPermission},
		{http.StatusNotFound, CategoryNotFound},
		{http.StatusTooManyRequests, CategoryRateLimit},
		{http.StatusConflict, CategoryExternal},
		{http.StatusUnprocessableEntity, CategoryExternal},
		{http.StatusInternalServerError, CategoryServer},
		{http.StatusBadGateway, CategoryServer},
		{http.StatusServiceUnavailable, CategoryServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			if got := categoryForStatus(tt.status); got != tt.want {
				t.Errorf("categoryForStatus(%d) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		category Category
		want     bool
	}{
		{CategoryValidation, false},
		{CategoryAuth, false},
		{CategoryPermission, false},
		{CategoryNotFound, false},
		{CategoryExternal, false},
		{CategoryRateLimit, true},
		{CategoryServer, true},
		{CategoryTimeout, true},
		{CategoryNetwork, true},
		{CategoryDatabase, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			e := &APIError{Category: tt.category}
			if got := e.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}

			// Retryable categories suggest a retry-after interval.
			after := e.RetryAfter()
			if tt.want && after <= 0 {
				t.Errorf("RetryAfter() = %v, want > 0 for retryable category", after)
			}
			if !tt.want && after != 0 {
				t.Errorf("RetryAfter() = %v, want 0 for non-retryable category", after)
			}
		})
	}
}

func TestAPIError_ErrorString(t *testing.T) {
	withStatus := &APIError{
		Operation:  EndpointPrebook,
		Category:   CategoryServer,
		StatusCode: 502,
		Message:    "bad gateway",
	}
	msg := withStatus.Error()
	for _, part := range []string{"server", "/hotel/prebook/", "502", "bad gateway"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}

	withoutStatus := &APIError{
		Operation: EndpointBookingFinish,
		Category:  CategoryValidation,
		Message:   "partner_order_id is required",
	}
	if strings.Contains(withoutStatus.Error(), "status") {
		t.Errorf("Error() = %q, should omit status when none", withoutStatus.Error())
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	e := &APIError{Category: CategoryNetwork, Err: inner}
	if !errors.Is(e, inner) {
		t.Error("APIError does not unwrap to its inner error")
	}
}

func TestClassifyTransport(t *testing.T) {
	if got := classifyTransport(context.DeadlineExceeded); got != CategoryTimeout {
		t.Errorf("deadline exceeded classified as %s, want timeout", got)
	}
	if got := classifyTransport(fmt.Errorf("dial tcp: %w", errors.New("connection refused"))); got != CategoryNetwork {
		t.Errorf("connection refused classified as %s, want network", got)
	}
	if got := classifyTransport(timeoutNetError{}); got != CategoryTimeout {
		t.Errorf("net timeout classified as %s, want timeout", got)
	}
}

// timeoutNetError implements net.Error with Timeout() == true.
type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }
