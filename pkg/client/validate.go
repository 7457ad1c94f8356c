package client

import (
	"encoding/json"
	"strings"
	"time"
)

// PaymentTypes accepted by the vendor for the finish call.
const (
	PaymentDeposit = "deposit"
	PaymentNow     = "now"
	PaymentHotel   = "hotel"
)

// NormalizePaymentType trims and lowercases a payment type and validates it
// against the closed vendor set. Returns ErrMissingPaymentType for blank
// input and ErrInvalidPaymentType for anything outside the set.
func NormalizePaymentType(paymentType string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(paymentType))
	switch normalized {
	case "":
		return "", ErrMissingPaymentType
	case PaymentDeposit, PaymentNow, PaymentHotel:
		return normalized, nil
	default:
		return "", ErrInvalidPaymentType
	}
}

// ValidateStayDates checks that both dates parse as YYYY-MM-DD and that
// checkout is strictly after checkin.
func ValidateStayDates(checkin, checkout string) error {
	in, err := time.Parse("2006-01-02", checkin)
	if err != nil {
		return ErrInvalidDateRange
	}
	out, err := time.Parse("2006-01-02", checkout)
	if err != nil {
		return ErrInvalidDateRange
	}
	if !out.After(in) {
		return ErrInvalidDateRange
	}
	return nil
}

// FinishRequest is the request body for the booking finish call. The vendor
// accepts two mutually exclusive shapes: a price-locked book hash from
// prebook, or an (order id, item id) pair from the booking form. The sealed
// interface keeps the exclusivity at the type level; construct exactly one
// of FinishByBookHash or FinishByOrderItem.
type FinishRequest interface {
	// finishBody validates the request locally and builds the wire body.
	finishBody(language string) (map[string]any, error)
}

// FinishByBookHash finishes a booking from a prebook hold.
type FinishByBookHash struct {
	BookHash    string
	PaymentType string
	UserIP      string
}

func (r FinishByBookHash) finishBody(language string) (map[string]any, error) {
	if strings.TrimSpace(r.BookHash) == "" {
		return nil, ErrMissingBookHash
	}
	paymentType, err := NormalizePaymentType(r.PaymentType)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"hash":         r.BookHash,
		"language":     language,
		"payment_type": paymentType,
	}
	if r.UserIP != "" {
		body["user_ip"] = r.UserIP
	}
	return body, nil
}

// FinishByOrderItem finishes a booking from an order/item pair. PartnerOrderID,
// a non-empty guest list, and a valid payment type are all mandatory.
type FinishByOrderItem struct {
	OrderID        int64
	ItemID         int64
	Guests         []Guest
	PaymentType    string
	PartnerOrderID string
	UpsellData     json.RawMessage
}

func (r FinishByOrderItem) finishBody(language string) (map[string]any, error) {
	if strings.TrimSpace(r.PartnerOrderID) == "" {
		return nil, ErrMissingPartnerOrderID
	}
	if len(r.Guests) == 0 {
		return nil, ErrMissingGuests
	}
	paymentType, err := NormalizePaymentType(r.PaymentType)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"order_id":         r.OrderID,
		"item_id":          r.ItemID,
		"guests":           r.Guests,
		"payment_type":     paymentType,
		"partner_order_id": r.PartnerOrderID,
		"language":         language,
	}
	if len(r.UpsellData) > 0 {
		body["upsell_data"] = r.UpsellData
	}
	return body, nil
}
