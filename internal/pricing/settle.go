package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientPayment signals that cash tendered does not cover the grand total.
	ErrInsufficientPayment = errors.New("insufficient payment")
	// ErrUnknownPaymentMethod is returned for payment methods outside the supported set.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// PaymentMethod identifies how the customer pays.
type PaymentMethod string

const (
	Cash  PaymentMethod = "CASH"
	Card  PaymentMethod = "CARD"
	Other PaymentMethod = "OTHER"
)

// ParsePaymentMethod normalises a method name. Empty input defaults to cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return Cash, nil
	case Cash, Card, Other:
		return m, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownPaymentMethod)
	}
}

// Settlement is the payment state derived from the grand total and tender.
type Settlement struct {
	Method     PaymentMethod `json:"method"`
	Tendered   Money         `json:"tendered"`
	Balance    Money         `json:"balance"`
	Sufficient bool          `json:"sufficient"`
}

// Err returns ErrInsufficientPayment when the settlement does not cover the total.
func (s Settlement) Err() error {
	if !s.Sufficient {
		return ErrInsufficientPayment
	}
	return nil
}

// Settle computes change for a payment. Only cash is validated against the
// grand total; other methods are always sufficient and carry no balance.
func Settle(grandTotal, tendered Money, method PaymentMethod) Settlement {
	if tendered < 0 {
		tendered = 0
	}
	if grandTotal < 0 {
		grandTotal = 0
	}
	s := Settlement{Method: method, Tendered: tendered}
	if method != Cash {
		s.Sufficient = true
		return s
	}
	s.Sufficient = tendered >= grandTotal
	if s.Sufficient {
		s.Balance = tendered - grandTotal
	}
	return s
}

// CheckoutBlock reports why checkout is not allowed, or nil when it is. An
// empty cart takes precedence over an insufficient payment.
func CheckoutBlock(c Cart, s Settlement) error {
	if c.Len() == 0 {
		return ErrEmptyCart
	}
	return s.Err()
}

// CanCheckout is the predicate form of CheckoutBlock.
func CanCheckout(c Cart, s Settlement) bool {
	return CheckoutBlock(c, s) == nil
}
