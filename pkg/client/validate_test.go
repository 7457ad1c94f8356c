package client

import (
	"errors"
	"testing"
)

func TestNormalizePaymentType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"lowercase deposit", "deposit", "deposit", nil},
		{"capitalized", "Deposit", "deposit", nil},
		{"uppercase", "DEPOSIT", "deposit", nil},
		{"surrounding whitespace", " deposit ", "deposit", nil},
		{"now", "now", "now", nil},
		{"hotel", "Hotel", "hotel", nil},
		{"empty", "", "", ErrMissingPaymentType},
		{"whitespace only", "   ", "", ErrMissingPaymentType},
		{"outside closed set", "invalid", "", ErrInvalidPaymentType},
		{"card is not accepted", "card", "", ErrInvalidPaymentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePaymentType(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizePaymentType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateStayDates(t *testing.T) {
	tests := []struct {
		name     string
		checkin  string
		checkout string
		wantErr  bool
	}{
		{"valid two-night stay", "2025-03-15", "2025-03-17", false},
		{"single night", "2025-03-15", "2025-03-16", false},
		{"checkout equals checkin", "2025-03-15", "2025-03-15", true},
		{"checkout before checkin", "2025-03-17", "2025-03-15", true},
		{"bad checkin format", "03/15/2025", "2025-03-17", true},
		{"bad checkout format", "2025-03-15", "tomorrow", true},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStayDates(tt.checkin, tt.checkout)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStayDates(%q, %q) = %v, wantErr %v",
					tt.checkin, tt.checkout, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDateRange) {
				t.Errorf("error = %v, want ErrInvalidDateRange", err)
			}
		})
	}
}

func TestFinishBody_BookHashShape(t *testing.T) {
	body, err := FinishByBookHash{
		BookHash:    "b-1",
		PaymentType: " NOW ",
		UserIP:      "203.0.113.10",
	}.finishBody("en")
	if err != nil {
		t.Fatalf("finishBody failed: %v", err)
	}

	if body["hash"] != "b-1" {
		t.Errorf("hash = %v, want b-1", body["hash"])
	}
	if body["payment_type"] != "now" {
		t.Errorf("payment_type = %v, want now", body["payment_type"])
	}
	if body["user_ip"] != "203.0.113.10" {
		t.Errorf("user_ip = %v", body["user_ip"])
	}
	if _, ok := body["order_id"]; ok {
		t.Error("book-hash shape must not carry order_id")
	}
}

func TestFinishBody_OrderItemShape(t *testing.T) {
	body, err := FinishByOrderItem{
		OrderID:        9001,
		ItemID:         2,
		Guests:         []Guest{{FirstName: "Ada", LastName: "Lovelace"}},
		PaymentType:    "hotel",
		PartnerOrderID: "p-42",
	}.finishBody("en")
	if err != nil {
		t.Fatalf("finishBody failed: %v", err)
	}

	if body["order_id"] != int64(9001) {
		t.Errorf("order_id = %v, want 9001", body["order_id"])
	}
	if body["partner_order_id"] != "p-42" {
		t.Errorf("partner_order_id = %v, want p-42", body["partner_order_id"])
	}
	if _, ok := body["hash"]; ok {
		t.Error("order-item shape must not carry hash")
	}
	if _, ok := body["upsell_data"]; ok {
		t.Error("absent upsell data must be omitted")
	}
}

func TestGuestsKey_Canonical(t *testing.T) {
	a := GuestsKey([]GuestGroup{
		{Adults: 2, Children: []int{7, 3}},
		{Adults: 1},
	})
	b := GuestsKey([]GuestGroup{
		{Adults: 1},
		{Adults: 2, Children: []int{3, 7}},
	})
	if a != b {
		t.Errorf("equivalent guest compositions encode differently: %q vs %q", a, b)
	}

	c := GuestsKey([]GuestGroup{{Adults: 3}})
	if a == c {
		t.Error("different guest compositions encode identically")
	}
}
