package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Totals aggregates computed pricing components for a cart.
type Totals struct {
	OriginalTotal    Money   `json:"originalTotal"`
	ItemDiscounts    Money   `json:"itemDiscounts"`
	Subtotal         Money   `json:"subtotal"`
	OrderDiscountPct float64 `json:"orderDiscountPercentage"`
	OrderDiscount    Money   `json:"orderDiscount"`
	GrandTotal       Money   `json:"grandTotal"`
}

// TotalDiscount is the sum of item-level and order-level discounts.
func (t Totals) TotalDiscount() Money { return t.ItemDiscounts + t.OrderDiscount }

// Compute folds lines into totals. Item discounts are applied first and the
// order percentage is then taken from the discounted subtotal.
func Compute(lines []Line, orderPct float64) Totals {
	var original, discounts Money
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		original += l.Original()
		discounts += l.DiscountTotal()
	}
	subtotal := maxMoney(0, original-discounts)
	od := ApplyOrderDiscount(subtotal, orderPct)
	return Totals{
		OriginalTotal:    original,
		ItemDiscounts:    discounts,
		Subtotal:         subtotal,
		OrderDiscountPct: od.Percentage,
		OrderDiscount:    od.Discount,
		GrandTotal:       od.GrandTotal,
	}
}

// OrderDiscount is the outcome of applying an order-wide percentage.
type OrderDiscount struct {
	Percentage float64 `json:"percentage"`
	Discount   Money   `json:"discount"`
	GrandTotal Money   `json:"grandTotal"`
}

// ClampPercent bounds p to [0, 100]. NaN is treated as zero.
func ClampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// ApplyOrderDiscount takes pct percent off subtotal. The discount is rounded
// to the minor unit and never exceeds the subtotal.
func ApplyOrderDiscount(subtotal Money, pct float64) OrderDiscount {
	pct = ClampPercent(pct)
	if subtotal <= 0 {
		return OrderDiscount{Percentage: pct}
	}
	raw := decimal.NewFromInt(int64(subtotal)).
		Mul(decimal.NewFromFloat(pct)).
		Div(hundred).
		Round(0)
	discount := Clamp(Money(raw.IntPart()), 0, subtotal)
	return OrderDiscount{
		Percentage: pct,
		Discount:   discount,
		GrandTotal: subtotal - discount,
	}
}
