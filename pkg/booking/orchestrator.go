// Package booking drives the multi-step asynchronous booking state machine:
// prebook a rate hold, optionally retrieve the booking form, submit the
// finish call, then poll the vendor until the booking reaches a terminal
// status.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hoteldesk/etg-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	etgBookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etg_bookings_total",
		Help: "Completed booking sessions by terminal outcome",
	}, []string{"outcome"}) // "confirmed", "failed", "still_processing"

	etgBookingPolls = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "etg_booking_status_polls",
		Help:    "Status polls needed to reach a terminal booking state",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
	})
)

// State is a step of the booking state machine.
type State string

const (
	StateSearched      State = "searched"
	StatePrebooked     State = "prebooked"
	StateFormRetrieved State = "form_retrieved"
	StateFinishing     State = "finishing"
	StateProcessing    State = "processing"
	StateConfirmed     State = "confirmed"
	StateFailed        State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

var (
	// ErrStillProcessing is returned when the vendor has not reached a
	// terminal status within the polling deadline. The booking may still
	// complete; callers should check back with the order id.
	ErrStillProcessing = errors.New("booking still processing, check back later")

	// ErrInvalidTransition is returned when an operation is invoked from a
	// state it cannot proceed from.
	ErrInvalidTransition = errors.New("invalid booking state transition")
)

// API is the subset of the ETG client the orchestrator drives.
// *client.Client satisfies it.
type API interface {
	PrebookHotel(ctx context.Context, matchHash, residency string) (*client.PrebookResult, error)
	GetBookingForm(ctx context.Context, bookHash, language string) (*client.BookingForm, error)
	FinishBooking(ctx context.Context, req client.FinishRequest) (*client.FinishResult, error)
	GetBookingStatus(ctx context.Context, orderID int64) (*client.StatusResult, error)
}

// Config holds orchestrator configuration.
type Config struct {
	// PollInterval is the pause between booking status polls.
	PollInterval time.Duration

	// PollDeadline bounds the total polling time before giving up with
	// ErrStillProcessing.
	PollDeadline time.Duration

	// Language for form and status calls.
	Language string
}

// DefaultConfig returns safe polling defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 3 * time.Second,
		PollDeadline: 5 * time.Minute,
		Language:     "en",
	}
}

// Session tracks one booking attempt through the state machine. Exactly one
// of BookHash or the (OrderID, ItemID) pair identifies the finish path.
type Session struct {
	State          State
	MatchHash      string
	BookHash       string
	OrderID        int64
	ItemID         int64
	PartnerOrderID string
	Status         client.BookingStatus
	PriceChanged   bool
}

// Orchestrator sequences the booking flow. Each upstream call is
// individually rate limited by the client it drives.
type Orchestrator struct {
	api    API
	config Config
	logger zerolog.Logger
}

// New creates an orchestrator.
func New(api API, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = 5 * time.Minute
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Orchestrator{
		api:    api,
		config: cfg,
		logger: log.With().Str("component", "booking").Logger(),
	}
}

// Start begins a session from a rate's match hash obtained via search.
func (o *Orchestrator) Start(matchHash string) *Session {
	return &Session{
		State:     StateSearched,
		MatchHash: matchHash,
	}
}

// Prebook locks the price of the searched rate. On failure the session is
// terminal: the price or availability changed and the caller must re-search.
func (o *Orchestrator) Prebook(ctx context.Context, s *Session, residency string) error {
	if s.State != StateSearched {
		return fmt.Errorf("%w: prebook from %s", ErrInvalidTransition, s.State)
	}

	result, err := o.api.PrebookHotel(ctx, s.MatchHash, residency)
	if err != nil {
		s.State = StateFailed
		o.logger.Warn().Err(err).
			Str("match_hash", s.MatchHash).
			Msg("Prebook failed - rate no longer available")
		return err
	}

	s.BookHash = result.BookHash
	s.PriceChanged = result.PriceChanged
	s.State = StatePrebooked

	o.logger.Info().
		Str("book_hash", s.BookHash).
		Bool("price_changed", s.PriceChanged).
		Msg("Rate prebooked")
	return nil
}

// RetrieveForm fetches the required guest-field schema. Optional step.
func (o *Orchestrator) RetrieveForm(ctx context.Context, s *Session) (*client.BookingForm, error) {
	if s.State != StatePrebooked {
		return nil, fmt.Errorf("%w: retrieve form from %s", ErrInvalidTransition, s.State)
	}

	form, err := o.api.GetBookingForm(ctx, s.BookHash, o.config.Language)
	if err != nil {
		return nil, err
	}

	s.State = StateFormRetrieved
	return form, nil
}

// Finish submits the finish call with either request shape. Requests using
// the order-item flow get a generated partner order id when the caller left
// it empty. Local validation failures leave the session state unchanged so
// the caller can correct the input and retry; upstream failures are
// terminal for the session.
func (o *Orchestrator) Finish(ctx context.Context, s *Session, req client.FinishRequest) error {
	if s.State != StatePrebooked && s.State != StateFormRetrieved {
		return fmt.Errorf("%w: finish from %s", ErrInvalidTransition, s.State)
	}
	prev := s.State

	// FinishRequest is satisfied by both the value and its pointer.
	switch byOrder := req.(type) {
	case client.FinishByOrderItem:
		if byOrder.PartnerOrderID == "" {
			byOrder.PartnerOrderID = uuid.NewString()
			req = byOrder
		}
		s.PartnerOrderID = byOrder.PartnerOrderID
		s.ItemID = byOrder.ItemID
	case *client.FinishByOrderItem:
		if byOrder.PartnerOrderID == "" {
			byOrder.PartnerOrderID = uuid.NewString()
		}
		s.PartnerOrderID = byOrder.PartnerOrderID
		s.ItemID = byOrder.ItemID
	}

	s.State = StateFinishing
	result, err := o.api.FinishBooking(ctx, req)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Category == client.CategoryValidation {
			s.State = prev
			return err
		}
		s.State = StateFailed
		return err
	}

	s.OrderID = result.OrderID
	s.Status = result.Status

	switch result.Status {
	case client.StatusConfirmed:
		s.State = StateConfirmed
	case client.StatusFailed:
		s.State = StateFailed
	default:
		s.State = StateProcessing
	}

	o.logger.Info().
		Int64("order_id", s.OrderID).
		Str("status", string(s.Status)).
		Msg("Finish submitted")
	return nil
}

// WaitForConfirmation polls the booking status until it is terminal, the
// polling deadline expires, or ctx is cancelled. Expiry yields
// ErrStillProcessing rather than blocking forever; each poll is an
// independent rate-limited request.
func (o *Orchestrator) WaitForConfirmation(ctx context.Context, s *Session) (client.BookingStatus, error) {
	if s.State.Terminal() {
		return s.Status, nil
	}
	if s.State != StateProcessing {
		return "", fmt.Errorf("%w: wait for confirmation from %s", ErrInvalidTransition, s.State)
	}

	deadline := time.Now().Add(o.config.PollDeadline)

	for attempt := 1; ; attempt++ {
		result, err := o.api.GetBookingStatus(ctx, s.OrderID)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				// Transient poll failure; the booking itself is unaffected.
				o.logger.Warn().Err(err).
					Int64("order_id", s.OrderID).
					Int("attempt", attempt).
					Msg("Status poll failed - retrying")
			} else {
				return "", err
			}
		} else {
			s.Status = result.Status
			switch result.Status {
			case client.StatusConfirmed:
				s.State = StateConfirmed
				etgBookingsTotal.WithLabelValues("confirmed").Inc()
				etgBookingPolls.Observe(float64(attempt))
				o.logger.Info().
					Int64("order_id", s.OrderID).
					Int("polls", attempt).
					Msg("Booking confirmed")
				return result.Status, nil
			case client.StatusFailed:
				s.State = StateFailed
				etgBookingsTotal.WithLabelValues("failed").Inc()
				etgBookingPolls.Observe(float64(attempt))
				o.logger.Warn().
					Int64("order_id", s.OrderID).
					Int("polls", attempt).
					Msg("Booking failed")
				return result.Status, nil
			}
		}

		if time.Now().After(deadline) {
			etgBookingsTotal.WithLabelValues("still_processing").Inc()
			o.logger.Warn().
				Int64("order_id", s.OrderID).
				Int("polls", attempt).
				Msg("Polling deadline reached - booking still processing")
			return client.StatusProcessing, ErrStillProcessing
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(o.config.PollInterval):
		}
	}
}
