package pricing

// SaleRecordItem is a persisted sale line. Price is the discounted unit price
// and Discount the per-unit discount granted at sale time.
type SaleRecordItem struct {
	SaleItemID  Field  `json:"saleItemId"`
	ProductID   Field  `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Name        string `json:"name,omitempty"`
	Qty         Field  `json:"qty"`
	Price       Field  `json:"price"`
	Discount    Field  `json:"discount"`
	TotalPrice  Field  `json:"totalPrice"`
}

// SaleRecord is a persisted sale as returned by the sale store. Numeric
// fields may be strings, null, or missing.
type SaleRecord struct {
	SaleID                  Field            `json:"saleId"`
	SaleDate                string           `json:"saleDate"`
	PaymentMethod           string           `json:"paymentMethod"`
	UserID                  Field            `json:"userId"`
	CustomerID              Field            `json:"customerId"`
	OriginalTotal           Field            `json:"originalTotal"`
	ItemDiscounts           Field            `json:"itemDiscounts"`
	TotalDiscount           Field            `json:"totalDiscount"`
	Subtotal                Field            `json:"subtotal"`
	OrderDiscountPercentage Field            `json:"orderDiscountPercentage"`
	OrderDiscount           Field            `json:"orderDiscount"`
	TotalAmount             Field            `json:"totalAmount"`
	PaymentAmount           Field            `json:"paymentAmount"`
	Balance                 Field            `json:"balance"`
	SaleItems               []SaleRecordItem `json:"saleItems"`
}

// ReceiptLine is a display-ready sale line.
type ReceiptLine struct {
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	Qty               int    `json:"qty"`
	OriginalUnitPrice Money  `json:"originalUnitPrice"`
	UnitPrice         Money  `json:"unitPrice"`
	Discount          Money  `json:"perUnitDiscount"`
	DiscountTotal     Money  `json:"discountTotal"`
	Total             Money  `json:"total"`
}

// Receipt holds display totals reconstructed from a persisted sale.
type Receipt struct {
	SaleID           string        `json:"saleId"`
	SaleDate         string        `json:"saleDate"`
	PaymentMethod    string        `json:"paymentMethod"`
	CashierID        string        `json:"cashierId,omitempty"`
	CustomerID       string        `json:"customerId,omitempty"`
	Lines            []ReceiptLine `json:"lines"`
	ItemCount        int           `json:"itemCount"`
	OriginalTotal    Money         `json:"originalTotal"`
	ItemDiscounts    Money         `json:"itemDiscounts"`
	Subtotal         Money         `json:"subtotal"`
	OrderDiscountPct float64       `json:"orderDiscountPercentage"`
	OrderDiscount    Money         `json:"orderDiscount"`
	GrandTotal       Money         `json:"grandTotal"`
	PaymentAmount    Money         `json:"paymentAmount"`
	Balance          Money         `json:"balance"`
	// Derived lists the totals that were recomputed because the persisted
	// value was missing or unparseable.
	Derived []string `json:"derived,omitempty"`
}

// TotalDiscount is the sum of item-level and order-level discounts.
func (r Receipt) TotalDiscount() Money { return r.ItemDiscounts + r.OrderDiscount }

// Project rebuilds display totals from a persisted sale. Each total prefers
// the persisted value and otherwise falls back to the line items, using the
// same formulas as Compute. It never fails; with nothing to go on every
// amount is zero.
func Project(rec SaleRecord) Receipt {
	r := Receipt{
		SaleID:        rec.SaleID.Text(),
		SaleDate:      rec.SaleDate,
		PaymentMethod: rec.PaymentMethod,
		CashierID:     rec.UserID.Text(),
		CustomerID:    rec.CustomerID.Text(),
		Lines:         make([]ReceiptLine, 0, len(rec.SaleItems)),
	}

	var original, discounts Money
	for _, it := range rec.SaleItems {
		qty, _ := it.Qty.Int()
		if qty < 0 {
			qty = 0
		}
		price, _ := it.Price.Money()
		disc, _ := it.Discount.Money()
		total, ok := it.TotalPrice.Money()
		if !ok {
			total = LineTotal(price, qty)
		}
		name := it.ProductName
		if name == "" {
			name = it.Name
		}
		line := ReceiptLine{
			ProductID:         it.ProductID.Text(),
			Name:              name,
			Qty:               qty,
			OriginalUnitPrice: price + disc,
			UnitPrice:         price,
			Discount:          disc,
			DiscountTotal:     disc.Mul(qty),
			Total:             total,
		}
		if line.Name == "" {
			line.Name = "Item " + line.ProductID
		}
		r.Lines = append(r.Lines, line)
		r.ItemCount += qty
		original += line.OriginalUnitPrice.Mul(qty)
		discounts += line.DiscountTotal
	}

	r.OriginalTotal = r.pick("originalTotal", rec.OriginalTotal, original)
	r.ItemDiscounts = r.pick("itemDiscounts", rec.ItemDiscounts, discounts)
	r.Subtotal = r.pick("subtotal", rec.Subtotal, maxMoney(0, r.OriginalTotal-r.ItemDiscounts))

	pct, _ := rec.OrderDiscountPercentage.Float()
	r.OrderDiscountPct = resolvePercent(pct, r.Subtotal, rec.OrderDiscount)

	r.OrderDiscount = r.pick("orderDiscount", rec.OrderDiscount, ApplyOrderDiscount(r.Subtotal, r.OrderDiscountPct).Discount)
	r.GrandTotal = r.pick("grandTotal", rec.TotalAmount, maxMoney(0, r.Subtotal-r.OrderDiscount))

	payment, ok := rec.PaymentAmount.Money()
	if !ok {
		payment = 0
	}
	r.PaymentAmount = payment
	var change Money
	if payment > 0 {
		change = maxMoney(0, payment-r.GrandTotal)
	}
	r.Balance = r.pick("balance", rec.Balance, change)
	return r
}

func (r *Receipt) pick(name string, f Field, fallback Money) Money {
	if v, ok := f.Money(); ok {
		return v
	}
	r.Derived = append(r.Derived, name)
	return fallback
}

// resolvePercent clamps p to [0, 100]. Some stores persist the percentage as
// a fraction; a value below 1 is scaled by 100 only when the persisted order
// discount matches the scaled reading and not the literal one.
func resolvePercent(p float64, subtotal Money, persisted Field) float64 {
	p = ClampPercent(p)
	if p <= 0 || p >= 1 {
		return p
	}
	od, ok := persisted.Money()
	if !ok {
		return p
	}
	if ApplyOrderDiscount(subtotal, p*100).Discount == od && ApplyOrderDiscount(subtotal, p).Discount != od {
		return p * 100
	}
	return p
}
