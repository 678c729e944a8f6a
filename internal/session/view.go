package session

import (
	"errors"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// LineView is a cart line with its computed amounts.
type LineView struct {
	pricing.Line
	Total         pricing.Money `json:"total"`
	DiscountTotal pricing.Money `json:"discountTotal"`
}

// View is the API representation of a session.
type View struct {
	ID            string             `json:"id"`
	State         State              `json:"state"`
	Lines         []LineView         `json:"lines"`
	ItemCount     int                `json:"itemCount"`
	Totals        pricing.Totals     `json:"totals"`
	TotalDiscount pricing.Money      `json:"totalDiscount"`
	Settlement    pricing.Settlement `json:"settlement"`
	CanCheckout   bool               `json:"canCheckout"`
	BlockReason   string             `json:"blockReason,omitempty"`
	SaleID        string             `json:"saleId,omitempty"`
	LastError     string             `json:"lastError,omitempty"`
	Display       Display            `json:"display"`
}

// Display carries pre-formatted amounts for the till screen.
type Display struct {
	Subtotal   string `json:"subtotal"`
	Discount   string `json:"discount"`
	GrandTotal string `json:"grandTotal"`
	Balance    string `json:"balance"`
}

// BlockReason names why checkout is refused, or "" when it is allowed.
func BlockReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pricing.ErrEmptyCart):
		return "EMPTY_CART"
	case errors.Is(err, pricing.ErrInsufficientPayment):
		return "INSUFFICIENT_PAYMENT"
	default:
		return "BLOCKED"
	}
}

// View renders the session with totals formatted in currency.
func (s *Session) View(currency string) View {
	totals := s.Totals()
	settle := s.Settlement()
	lines := make([]LineView, 0, len(s.Cart.Lines))
	for _, l := range s.Cart.Lines {
		lines = append(lines, LineView{Line: l, Total: l.Total(), DiscountTotal: l.DiscountTotal()})
	}
	block := pricing.CheckoutBlock(s.Cart, settle)
	canCheckout := block == nil && (s.State == ReadyToPay || s.State == Failed)
	return View{
		ID:            s.ID,
		State:         s.State,
		Lines:         lines,
		ItemCount:     s.Cart.ItemCount(),
		Totals:        totals,
		TotalDiscount: totals.TotalDiscount(),
		Settlement:    settle,
		CanCheckout:   canCheckout,
		BlockReason:   BlockReason(block),
		SaleID:        s.SaleID,
		LastError:     s.LastError,
		Display: Display{
			Subtotal:   pricing.Format(totals.Subtotal, currency),
			Discount:   pricing.Format(totals.TotalDiscount(), currency),
			GrandTotal: pricing.Format(totals.GrandTotal, currency),
			Balance:    pricing.Format(settle.Balance, currency),
		},
	}
}
