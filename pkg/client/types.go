package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// GuestGroup describes the occupancy of one room.
type GuestGroup struct {
	Adults   int   `json:"adults"`
	Children []int `json:"children,omitempty"`
}

// Guest is one traveler on a booking.
type Guest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age,omitempty"`
	IsChild   bool   `json:"is_child,omitempty"`
}

// Rate is one bookable rate of a hotel. MatchHash identifies the rate in
// search results and feeds prebook; BookHash identifies a price-locked hold
// returned by prebook and feeds the finish call.
type Rate struct {
	MatchHash      string          `json:"match_hash,omitempty"`
	BookHash       string          `json:"book_hash,omitempty"`
	RoomName       string          `json:"room_name,omitempty"`
	Meal           string          `json:"meal,omitempty"`
	DailyPrices    []string        `json:"daily_prices,omitempty"`
	PaymentOptions json.RawMessage `json:"payment_options,omitempty"`
}

// HotelRates is a hotel together with its live rates as returned by the
// search endpoints.
type HotelRates struct {
	ID    string `json:"id"`
	HID   int64  `json:"hid,omitempty"`
	Rates []Rate `json:"rates"`
}

// FirstMatchHash returns the match hash of the hotel's first rate, the one
// surfaced to callers for a later prebook. Empty when the hotel has no rates.
func (h HotelRates) FirstMatchHash() string {
	if len(h.Rates) == 0 {
		return ""
	}
	return h.Rates[0].MatchHash
}

// RegionSearchRequest is the input for a region search.
type RegionSearchRequest struct {
	RegionID  int
	Checkin   string // YYYY-MM-DD
	Checkout  string // YYYY-MM-DD
	Residency string // ISO country code, any case
	Language  string
	Guests    []GuestGroup
	Currency  string
}

// GuestsKey serializes the guest composition into a canonical string for
// cache keying: groups sorted, each as "adults|childAge,childAge".
func GuestsKey(guests []GuestGroup) string {
	encoded := make([]string, 0, len(guests))
	for _, g := range guests {
		ages := make([]string, 0, len(g.Children))
		children := append([]int(nil), g.Children...)
		sort.Ints(children)
		for _, age := range children {
			ages = append(ages, fmt.Sprintf("%d", age))
		}
		encoded = append(encoded, fmt.Sprintf("%d|%s", g.Adults, strings.Join(ages, ",")))
	}
	sort.Strings(encoded)
	return strings.Join(encoded, ";")
}

// CacheFields returns the normalized search parameters for cache keying.
func (r RegionSearchRequest) CacheFields() map[string]string {
	return map[string]string{
		"region_id": fmt.Sprintf("%d", r.RegionID),
		"checkin":   r.Checkin,
		"checkout":  r.Checkout,
		"residency": strings.ToUpper(r.Residency),
		"language":  r.Language,
		"currency":  r.Currency,
		"guests":    GuestsKey(r.Guests),
	}
}

// RegionSearchResult is the payload of a region search. Raw carries the
// full vendor payload verbatim; cache writes use it so that vendor fields
// not modeled here survive the round trip.
type RegionSearchResult struct {
	Hotels   []HotelRates `json:"hotels"`
	SearchID string       `json:"search_id"`
	RegionID int          `json:"region_id"`

	Raw json.RawMessage `json:"-"`
}

// HotelSearchRequest is the input for a single-hotel rates search.
type HotelSearchRequest struct {
	ID        string
	Checkin   string
	Checkout  string
	Residency string
	Language  string
	Guests    []GuestGroup
	Currency  string
}

// StaticHotel is a static hotel descriptor. Raw carries the full vendor
// payload verbatim; the parsed fields cover what callers commonly need.
type StaticHotel struct {
	ID         string   `json:"id"`
	HID        int64    `json:"hid,omitempty"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	StarRating int      `json:"star_rating,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	Images     []string `json:"images,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// PrebookResult is the outcome of a prebook call: a price-locked hold.
type PrebookResult struct {
	BookHash     string
	PriceChanged bool
	Raw          json.RawMessage
}

// BookingForm describes the guest fields the vendor requires before finish.
type BookingForm struct {
	GuestFields  []string        `json:"guest_fields,omitempty"`
	PaymentTypes json.RawMessage `json:"payment_types,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// BookingStatus is the vendor-reported status of an asynchronous booking.
type BookingStatus string

const (
	// StatusProcessing means the vendor is completing the booking
	// asynchronously; neither success nor failure yet.
	StatusProcessing BookingStatus = "processing"

	// StatusConfirmed is a terminal success.
	StatusConfirmed BookingStatus = "confirmed"

	// StatusFailed is a terminal failure.
	StatusFailed BookingStatus = "failed"
)

// Terminal reports whether the status is final.
func (s BookingStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// FinishResult is the payload of a finish call. Status starts as
// StatusProcessing; callers poll GetBookingStatus until terminal.
type FinishResult struct {
	OrderID int64         `json:"order_id"`
	Status  BookingStatus `json:"status"`
}

// StatusResult is the payload of a booking status poll.
type StatusResult struct {
	Status BookingStatus `json:"status"`
	Raw    json.RawMessage
}

// Region is one autocomplete result.
type Region struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// MulticompleteResult is the payload of an autocomplete query.
type MulticompleteResult struct {
	Regions []Region `json:"regions"`
}
