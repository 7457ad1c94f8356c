// Package ratelimit implements per-endpoint sliding-window admission control
// for outbound ETG API calls. The vendor imposes fixed request quotas per
// endpoint (search: 10/min, info and booking: 30/min); the limiter tracks a
// timestamp history per endpoint and blocks callers until a slot frees up
// instead of failing the request.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit admission.
var (
	etgRateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "etg_rate_limit_remaining",
		Help: "Remaining request quota in the current window by endpoint",
	}, []string{"endpoint"})

	etgRateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etg_rate_limit_waits_total",
		Help: "Total number of requests that had to wait for a quota slot",
	}, []string{"endpoint"})

	etgRateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etg_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a quota slot by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})
)

// RemainingUnbounded is reported for endpoints without a configured limit.
const RemainingUnbounded = -1

// waitCushion is added to computed wait durations so that a re-check after
// sleeping lands strictly outside the window boundary.
const waitCushion = 25 * time.Millisecond

// Limit describes the vendor quota for one endpoint.
type Limit struct {
	// MaxRequests is the number of requests admitted per window.
	MaxRequests int

	// Window is the sliding window duration.
	Window time.Duration
}

// DefaultLimits returns the vendor-published quotas per endpoint path
// (requests per 60 second window).
func DefaultLimits() map[string]Limit {
	search := Limit{MaxRequests: 10, Window: 60 * time.Second}
	info := Limit{MaxRequests: 30, Window: 60 * time.Second}

	return map[string]Limit{
		"/search/serp/region/":                search,
		"/search/hp/":                         search,
		"/search/multicomplete/":              search,
		"/hotel/info/":                        info,
		"/hotel/prebook/":                     info,
		"/hotel/order/booking/form/":          info,
		"/hotel/order/booking/finish/":        info,
		"/hotel/order/booking/finish/status/": info,
		"/hotel/order/info/":                  info,
		"/hotel/order/cancel/":                info,
	}
}

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed reports whether a request may be dispatched now.
	Allowed bool

	// Remaining is the quota left in the current window, or
	// RemainingUnbounded for endpoints without a configured limit.
	Remaining int

	// Wait is how long the caller must wait for the oldest in-window
	// request to age out. Zero when Allowed is true.
	Wait time.Duration
}

// Limiter tracks per-endpoint request history and gates outbound calls.
// One limiter instance is shared by all callers in a process; the history
// is not partitioned per caller.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	history map[string][]time.Time
	now     func() time.Time
	logger  zerolog.Logger
}

// NewLimiter creates a limiter for the given endpoint quotas.
// Endpoints absent from limits are admitted unconditionally.
func NewLimiter(limits map[string]Limit, logger zerolog.Logger) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		history: make(map[string][]time.Time),
		now:     time.Now,
		logger:  logger,
	}
}

// Check reports whether a request to endpoint may be dispatched now.
// It prunes aged-out timestamps but never records a request; pair it with
// Record after the upstream call is actually made.
func (l *Limiter) Check(endpoint string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[endpoint]
	if !ok {
		return Decision{Allowed: true, Remaining: RemainingUnbounded}
	}

	hist := l.pruneLocked(endpoint, limit)
	remaining := limit.MaxRequests - len(hist)
	etgRateLimitRemaining.WithLabelValues(endpoint).Set(float64(max(remaining, 0)))

	if remaining > 0 {
		return Decision{Allowed: true, Remaining: remaining}
	}

	wait := hist[0].Add(limit.Window).Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	return Decision{Allowed: false, Remaining: 0, Wait: wait + waitCushion}
}

// Record appends the current time to the endpoint's request history.
// Call it only after an upstream request was actually dispatched, never for
// attempts rejected locally. Unconfigured endpoints are not tracked.
func (l *Limiter) Record(endpoint string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[endpoint]
	if !ok {
		return
	}

	hist := l.pruneLocked(endpoint, limit)
	l.history[endpoint] = append(hist, l.now())
}

// Wait blocks until the endpoint has quota available or ctx is done.
// It re-checks after sleeping because another goroutine sharing the limiter
// may have taken the freed slot in the meantime.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	for {
		decision := l.Check(endpoint)
		if decision.Allowed {
			return nil
		}

		l.logger.Warn().
			Str("endpoint", endpoint).
			Dur("wait", decision.Wait).
			Msg("Rate limit reached - waiting for quota slot")

		etgRateLimitWaitsTotal.WithLabelValues(endpoint).Inc()
		etgRateLimitWaitSeconds.WithLabelValues(endpoint).Observe(decision.Wait.Seconds())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(decision.Wait):
		}
	}
}

// pruneLocked drops history entries older than the window.
// Callers must hold l.mu.
func (l *Limiter) pruneLocked(endpoint string, limit Limit) []time.Time {
	cutoff := l.now().Add(-limit.Window)
	hist := l.history[endpoint]

	idx := 0
	for idx < len(hist) && !hist[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		hist = append(hist[:0:0], hist[idx:]...)
		l.history[endpoint] = hist
	}
	return hist
}
