package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// State is the checkout flow position persisted with a session.
type State string

const (
	Building   State = "BUILDING"
	ReadyToPay State = "READY_TO_PAY"
	Submitting State = "SUBMITTING"
	Completed  State = "COMPLETED"
	Failed     State = "FAILED"
)

// Payment is what the cashier entered at the tender step.
type Payment struct {
	Method   pricing.PaymentMethod `json:"method"`
	Tendered pricing.Money         `json:"tendered"`
}

// Session is one cashier's working sale.
type Session struct {
	ID               string       `json:"id"`
	CashierID        string       `json:"cashierId"`
	Cart             pricing.Cart `json:"cart"`
	OrderDiscountPct float64      `json:"orderDiscountPercentage"`
	Payment          Payment      `json:"payment"`
	State            State        `json:"state"`
	SaleID           string       `json:"saleId,omitempty"`
	LastError        string       `json:"lastError,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// New starts an empty cash sale for cashierID.
func New(cashierID string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:        uuid.NewString(),
		CashierID: cashierID,
		Cart:      pricing.Cart{Lines: []pricing.Line{}},
		Payment:   Payment{Method: pricing.Cash},
		State:     Building,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Totals prices the current cart.
func (s *Session) Totals() pricing.Totals {
	return s.Cart.Totals(s.OrderDiscountPct)
}

// Settlement applies the entered payment to the current grand total.
func (s *Session) Settlement() pricing.Settlement {
	method := s.Payment.Method
	if method == "" {
		method = pricing.Cash
	}
	return pricing.Settle(s.Totals().GrandTotal, s.Payment.Tendered, method)
}

// OwnedBy reports whether cashierID may act on the session.
func (s *Session) OwnedBy(cashierID string) bool {
	return s.CashierID == "" || s.CashierID == cashierID
}
