package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ID is a backend identifier. The backend emits some ids as JSON numbers and
// others as strings; both decode into the same textual form.
type ID string

// UnmarshalJSON accepts a number, a string, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("backend: invalid id %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits purely numeric ids as numbers so the backend can bind
// them to integer columns; anything else stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Product is the backend product representation.
type Product struct {
	ProductID      ID            `json:"productId"`
	Barcode        string        `json:"barcode"`
	ProductName    string        `json:"productName"`
	CategoryID     ID            `json:"categoryId"`
	BrandID        ID            `json:"brandId"`
	Cost           pricing.Money `json:"cost"`
	SalePrice      pricing.Money `json:"salePrice"`
	Qty            int           `json:"qty"`
	IsActive       bool          `json:"isActive"`
	TrackInventory bool          `json:"trackInventory"`
	Image          string        `json:"image,omitempty"`
}

// Pricing maps the product onto the view the cart needs. Products that do not
// track inventory are treated as always available.
func (p Product) Pricing() pricing.Product {
	available := p.Qty
	if !p.TrackInventory && available <= 0 {
		available = untrackedStock
	}
	return pricing.Product{
		ID:           p.ProductID.String(),
		Name:         p.ProductName,
		UnitPrice:    p.SalePrice,
		AvailableQty: available,
	}
}

// untrackedStock caps quantity for products sold without stock tracking.
const untrackedStock = 9999

// Category groups products.
type Category struct {
	CategoryID   ID     `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

// Brand identifies a product brand.
type Brand struct {
	BrandID   ID     `json:"brandId"`
	BrandName string `json:"brandName"`
}

// SaleItem is one line of a sale submission.
type SaleItem struct {
	ProductID  ID            `json:"productId"`
	Qty        int           `json:"qty"`
	Price      pricing.Money `json:"price"`
	Discount   pricing.Money `json:"discount"`
	TotalPrice pricing.Money `json:"totalPrice"`
	// Name is kept for local receipts and not sent.
	Name string `json:"-"`
}

// SalePayload is the body of POST /sales.
type SalePayload struct {
	SaleItems               []SaleItem    `json:"saleItems"`
	PaymentMethod           string        `json:"paymentMethod"`
	OriginalTotal           pricing.Money `json:"originalTotal"`
	ItemDiscounts           pricing.Money `json:"itemDiscounts"`
	Subtotal                pricing.Money `json:"subtotal"`
	OrderDiscountPercentage float64       `json:"orderDiscountPercentage"`
	OrderDiscount           pricing.Money `json:"orderDiscount"`
	TotalDiscount           pricing.Money `json:"totalDiscount"`
	TotalAmount             pricing.Money `json:"totalAmount"`
	PaymentAmount           pricing.Money `json:"paymentAmount"`
	Balance                 pricing.Money `json:"balance"`
	UserID                  ID            `json:"userId"`
	CustomerID              ID            `json:"customerId,omitempty"`
}

// NewSalePayload freezes priced cart lines and settlement into a submission.
func NewSalePayload(lines []pricing.Line, t pricing.Totals, s pricing.Settlement, userID string) SalePayload {
	items := make([]SaleItem, 0, len(lines))
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		items = append(items, SaleItem{
			ProductID:  ID(l.ProductID),
			Qty:        l.Qty,
			Price:      l.UnitPrice,
			Discount:   l.Discount,
			TotalPrice: l.Total(),
			Name:       l.Name,
		})
	}
	return SalePayload{
		SaleItems:               items,
		PaymentMethod:           string(s.Method),
		OriginalTotal:           t.OriginalTotal,
		ItemDiscounts:           t.ItemDiscounts,
		Subtotal:                t.Subtotal,
		OrderDiscountPercentage: t.OrderDiscountPct,
		OrderDiscount:           t.OrderDiscount,
		TotalDiscount:           t.TotalDiscount(),
		TotalAmount:             t.GrandTotal,
		PaymentAmount:           s.Tendered,
		Balance:                 s.Balance,
		UserID:                  ID(userID),
	}
}

// Record restates the submission as a persisted sale with id saleID. It
// stands in for the stored sale when the backend acknowledges a save without
// echoing it.
func (p SalePayload) Record(saleID string, at time.Time) pricing.SaleRecord {
	items := make([]pricing.SaleRecordItem, 0, len(p.SaleItems))
	for _, it := range p.SaleItems {
		items = append(items, pricing.SaleRecordItem{
			ProductID:   pricing.FieldOf(it.ProductID.String()),
			ProductName: it.Name,
			Qty:         pricing.FieldOf(it.Qty),
			Price:       pricing.FieldOf(it.Price),
			Discount:    pricing.FieldOf(it.Discount),
			TotalPrice:  pricing.FieldOf(it.TotalPrice),
		})
	}
	return pricing.SaleRecord{
		SaleID:                  pricing.FieldOf(saleID),
		SaleDate:                at.Format(time.RFC3339),
		PaymentMethod:           p.PaymentMethod,
		UserID:                  pricing.FieldOf(p.UserID.String()),
		OriginalTotal:           pricing.FieldOf(p.OriginalTotal),
		ItemDiscounts:           pricing.FieldOf(p.ItemDiscounts),
		TotalDiscount:           pricing.FieldOf(p.TotalDiscount),
		Subtotal:                pricing.FieldOf(p.Subtotal),
		OrderDiscountPercentage: pricing.FieldOf(p.OrderDiscountPercentage),
		OrderDiscount:           pricing.FieldOf(p.OrderDiscount),
		TotalAmount:             pricing.FieldOf(p.TotalAmount),
		PaymentAmount:           pricing.FieldOf(p.PaymentAmount),
		Balance:                 pricing.FieldOf(p.Balance),
		SaleItems:               items,
	}
}

// SaleRef is the backend's acknowledgement of a saved sale.
type SaleRef struct {
	SaleID     string             `json:"saleId"`
	StatusCode int                `json:"statusCode,omitempty"`
	Record     pricing.SaleRecord `json:"-"`
}
