package pricing

import "errors"

var (
	// ErrEmptyCart blocks checkout when the cart holds no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOutOfStock is returned when a product with no available stock is added.
	ErrOutOfStock = errors.New("product out of stock")
)

// Cart is an ordered list of lines. Operations return a new Cart and leave the
// receiver untouched.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Len reports the number of distinct lines.
func (c Cart) Len() int { return len(c.Lines) }

// ItemCount sums quantities over every line.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

// Line returns the line for productID when present.
func (c Cart) Line(productID string) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

func (c Cart) index(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// Add places qty units of p in the cart with the given per-unit discount.
//
// When a line for p already exists its quantity grows by qty while the
// discount and prices are replaced by this call's values: quantity is
// additive, price is last-write-wins. The incoming quantity is clamped to
// [1, p.AvailableQty] and the discount to [0, p.UnitPrice].
func (c Cart) Add(p Product, qty int, discount Money) (Cart, error) {
	qty = ClampQty(qty, p.AvailableQty)
	if qty == 0 {
		return c, ErrOutOfStock
	}
	discount = ClampDiscount(discount, p.UnitPrice)
	unit := UnitPrice(p.UnitPrice, discount)

	next := c.clone()
	if i := next.index(p.ID); i >= 0 {
		l := next.Lines[i]
		l.Qty += qty
		l.Discount = discount
		l.UnitPrice = unit
		l.CatalogPrice = p.UnitPrice
		l.AvailableQty = p.AvailableQty
		if p.Name != "" {
			l.Name = p.Name
		}
		next.Lines[i] = l
		return next, nil
	}
	next.Lines = append(next.Lines, Line{
		ProductID:    p.ID,
		Name:         p.Name,
		CatalogPrice: p.UnitPrice,
		AvailableQty: p.AvailableQty,
		Qty:          qty,
		Discount:     discount,
		UnitPrice:    unit,
	})
	return next, nil
}

// Remove deletes the line for productID regardless of its quantity.
func (c Cart) Remove(productID string) Cart {
	next := Cart{Lines: make([]Line, 0, len(c.Lines))}
	for _, l := range c.Lines {
		if l.ProductID != productID {
			next.Lines = append(next.Lines, l)
		}
	}
	return next
}

// ChangeQty adjusts a line's quantity by delta. A quantity that reaches zero
// removes the line; increments stop at the line's known availability.
func (c Cart) ChangeQty(productID string, delta int) Cart {
	i := c.index(productID)
	if i < 0 {
		return c.clone()
	}
	qty := c.Lines[i].Qty + delta
	if qty <= 0 {
		return c.Remove(productID)
	}
	if avail := c.Lines[i].AvailableQty; avail > 0 && delta > 0 && qty > avail {
		qty = avail
		if c.Lines[i].Qty > avail {
			qty = c.Lines[i].Qty
		}
	}
	next := c.clone()
	next.Lines[i].Qty = qty
	return next
}

// Totals computes the cart totals with an order-wide percentage discount.
func (c Cart) Totals(orderPct float64) Totals {
	return Compute(c.Lines, orderPct)
}
