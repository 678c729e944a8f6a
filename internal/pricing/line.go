package pricing

// Product is the read-only catalog view the pricer needs.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	UnitPrice    Money  `json:"unitPrice"`
	AvailableQty int    `json:"availableQty"`
}

// Line describes one product entry in a cart.
type Line struct {
	ProductID    string `json:"productId"`
	Name         string `json:"name,omitempty"`
	CatalogPrice Money  `json:"catalogPrice"`
	AvailableQty int    `json:"availableQty"`
	Qty          int    `json:"qty"`
	Discount     Money  `json:"perUnitDiscount"`
	UnitPrice    Money  `json:"unitPrice"`
}

// Total is the discounted line amount.
func (l Line) Total() Money { return LineTotal(l.UnitPrice, l.Qty) }

// Original is the line amount at catalog price.
func (l Line) Original() Money { return l.CatalogPrice.Mul(l.Qty) }

// DiscountTotal is the item-level discount granted on the whole line.
func (l Line) DiscountTotal() Money { return l.Discount.Mul(l.Qty) }

// ClampDiscount bounds a per-unit discount to [0, catalog].
func ClampDiscount(discount, catalog Money) Money {
	if catalog < 0 {
		catalog = 0
	}
	return Clamp(discount, 0, catalog)
}

// UnitPrice returns the effective per-unit price after an absolute discount.
func UnitPrice(catalog, discount Money) Money {
	if catalog < 0 {
		catalog = 0
	}
	return maxMoney(0, catalog-ClampDiscount(discount, catalog))
}

// LineTotal multiplies a unit price by quantity.
func LineTotal(unit Money, qty int) Money {
	if qty <= 0 {
		return 0
	}
	return unit.Mul(qty)
}

// ClampQty bounds a requested quantity to [1, available]. Out-of-range input is
// corrected, never rejected. It returns 0 when nothing is in stock.
func ClampQty(requested, available int) int {
	if available < 1 {
		return 0
	}
	if requested < 1 {
		return 1
	}
	if requested > available {
		return available
	}
	return requested
}

// Discount step tiers used by the per-line discount buttons. The step grows
// with the line subtotal so large tickets need fewer presses.
var (
	DiscountStepSmall  = Units(5)
	DiscountStepMedium = Units(10)
	DiscountStepLarge  = Units(100)

	discountStepMediumFrom = Units(100)
	discountStepLargeFrom  = Units(1000)
)

// DiscountStep returns the increment applied by one discount button press for
// a line whose subtotal (catalog price × qty) is subtotal.
func DiscountStep(subtotal Money) Money {
	switch {
	case subtotal >= discountStepLargeFrom:
		return DiscountStepLarge
	case subtotal >= discountStepMediumFrom:
		return DiscountStepMedium
	default:
		return DiscountStepSmall
	}
}

// StepDiscount moves current by one step up or down and keeps the result
// within [0, catalog].
func StepDiscount(current, subtotal, catalog Money, up bool) Money {
	step := DiscountStep(subtotal)
	if !up {
		step = -step
	}
	return ClampDiscount(current+step, catalog)
}
