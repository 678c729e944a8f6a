package report

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/cache"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrInvalidRange is returned for reversed or oversized date ranges.
var ErrInvalidRange = errors.New("invalid report range")

// SalesSource lists persisted sales by day.
type SalesSource interface {
	SalesInRange(ctx context.Context, from, to time.Time) ([]pricing.SaleRecord, error)
}

// SaleRow summarises one sale.
type SaleRow struct {
	SaleID        string        `json:"saleId"`
	SaleDate      string        `json:"saleDate"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	ItemCount     int           `json:"itemCount"`
	OriginalTotal pricing.Money `json:"originalTotal"`
	ItemDiscounts pricing.Money `json:"itemDiscounts"`
	OrderDiscount pricing.Money `json:"orderDiscount"`
	TotalDiscount pricing.Money `json:"totalDiscount"`
	TotalAmount   pricing.Money `json:"totalAmount"`
}

// Summary totals a set of sale rows.
type Summary struct {
	Sales         int           `json:"sales"`
	Items         int           `json:"items"`
	OriginalTotal pricing.Money `json:"originalTotal"`
	ItemDiscounts pricing.Money `json:"itemDiscounts"`
	OrderDiscount pricing.Money `json:"orderDiscount"`
	TotalDiscount pricing.Money `json:"totalDiscount"`
	TotalAmount   pricing.Money `json:"totalAmount"`
	AverageSale   pricing.Money `json:"averageSale"`
	// ByMethod is revenue per payment method.
	ByMethod map[string]pricing.Money `json:"byMethod"`
}

// SalesReport is the sales list for a day range.
type SalesReport struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Rows    []SaleRow `json:"rows"`
	Summary Summary   `json:"summary"`
}

// ItemRow aggregates one product across the sales of a range.
type ItemRow struct {
	ProductID   string        `json:"productId"`
	ProductName string        `json:"productName"`
	Qty         int           `json:"qty"`
	SalePrice   pricing.Money `json:"salePrice"`
	TotalPrice  pricing.Money `json:"totalPrice"`
	Discount    pricing.Money `json:"discount"`
	TotalAmount pricing.Money `json:"totalAmount"`
}

// ItemsReport lists products sold in a day range, best sellers first.
type ItemsReport struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Rows []ItemRow `json:"rows"`
}

// Service builds sales reports from the backend's sale history, caching each
// range in Redis.
type Service struct {
	Sales        SalesSource
	ByCashier    HistorySource
	Cache        *cache.Redis
	DefaultDays  int
	MaxRangeDays int
	// Location decides which sales count as today's in History.
	Location *time.Location
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Range resolves the requested day range. Empty bounds default to the last
// DefaultDays days ending today.
func (s *Service) Range(fromRaw, toRaw string) (time.Time, time.Time, error) {
	days := s.DefaultDays
	if days <= 0 {
		days = 30
	}
	maxDays := s.MaxRangeDays
	if maxDays <= 0 {
		maxDays = 366
	}
	today := s.now()
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if toRaw != "" {
		parsed, err := time.Parse(time.DateOnly, toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to %q: %w", toRaw, ErrInvalidRange)
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -(days - 1))
	if fromRaw != "" {
		parsed, err := time.Parse(time.DateOnly, fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from %q: %w", fromRaw, ErrInvalidRange)
		}
		from = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("from after to: %w", ErrInvalidRange)
	}
	if to.Sub(from) >= time.Duration(maxDays)*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("range over %d days: %w", maxDays, ErrInvalidRange)
	}
	return from, to, nil
}

// SalesRange reports every sale dated within [from, to].
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) (SalesReport, error) {
	key := cache.KeyReport("sales", from, to)
	var out SalesReport
	if s.Cache.GetJSON(ctx, cache.KindReport, key, &out) {
		return out, nil
	}
	records, err := s.Sales.SalesInRange(ctx, from, to)
	if err != nil {
		return SalesReport{}, fmt.Errorf("sales in range: %w", err)
	}
	out = BuildSales(records)
	out.From, out.To = from.Format(time.DateOnly), to.Format(time.DateOnly)
	_ = s.Cache.SetJSON(ctx, key, out)
	return out, nil
}

// ItemsRange reports products sold within [from, to].
func (s *Service) ItemsRange(ctx context.Context, from, to time.Time) (ItemsReport, error) {
	key := cache.KeyReport("items", from, to)
	var out ItemsReport
	if s.Cache.GetJSON(ctx, cache.KindReport, key, &out) {
		return out, nil
	}
	records, err := s.Sales.SalesInRange(ctx, from, to)
	if err != nil {
		return ItemsReport{}, fmt.Errorf("sales in range: %w", err)
	}
	out = ItemsReport{From: from.Format(time.DateOnly), To: to.Format(time.DateOnly), Rows: BuildItems(records)}
	_ = s.Cache.SetJSON(ctx, key, out)
	return out, nil
}

// BuildSales projects each record and totals the rows. Rows are ordered by
// sale date, then id.
func BuildSales(records []pricing.SaleRecord) SalesReport {
	rows := make([]SaleRow, 0, len(records))
	for _, rec := range records {
		r := pricing.Project(rec)
		rows = append(rows, SaleRow{
			SaleID:        r.SaleID,
			SaleDate:      r.SaleDate,
			PaymentMethod: r.PaymentMethod,
			ItemCount:     r.ItemCount,
			OriginalTotal: r.OriginalTotal,
			ItemDiscounts: r.ItemDiscounts,
			OrderDiscount: r.OrderDiscount,
			TotalDiscount: r.TotalDiscount(),
			TotalAmount:   r.GrandTotal,
		})
	}
	slices.SortStableFunc(rows, func(a, b SaleRow) int {
		return cmp.Or(cmp.Compare(a.SaleDate, b.SaleDate), cmp.Compare(a.SaleID, b.SaleID))
	})
	return SalesReport{Rows: rows, Summary: summarize(rows)}
}

func summarize(rows []SaleRow) Summary {
	sum := Summary{ByMethod: map[string]pricing.Money{}}
	for _, row := range rows {
		sum.Sales++
		sum.Items += row.ItemCount
		sum.OriginalTotal += row.OriginalTotal
		sum.ItemDiscounts += row.ItemDiscounts
		sum.OrderDiscount += row.OrderDiscount
		sum.TotalDiscount += row.TotalDiscount
		sum.TotalAmount += row.TotalAmount
		method := row.PaymentMethod
		if method == "" {
			method = "UNKNOWN"
		}
		sum.ByMethod[method] += row.TotalAmount
	}
	if sum.Sales > 0 {
		avg := sum.TotalAmount.Decimal().Div(decimal.NewFromInt(int64(sum.Sales)))
		sum.AverageSale = pricing.FromDecimal(avg)
	}
	return sum
}

// BuildItems aggregates sale lines per product, ordered by quantity sold
// and then revenue. SalePrice is the catalog price last seen for the product.
func BuildItems(records []pricing.SaleRecord) []ItemRow {
	byID := map[string]*ItemRow{}
	order := []string{}
	for _, rec := range records {
		for _, l := range pricing.Project(rec).Lines {
			row, ok := byID[l.ProductID]
			if !ok {
				row = &ItemRow{ProductID: l.ProductID}
				byID[l.ProductID] = row
				order = append(order, l.ProductID)
			}
			row.ProductName = l.Name
			row.SalePrice = l.OriginalUnitPrice
			row.Qty += l.Qty
			row.TotalPrice += l.OriginalUnitPrice.Mul(l.Qty)
			row.Discount += l.DiscountTotal
			row.TotalAmount += l.Total
		}
	}
	rows := make([]ItemRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byID[id])
	}
	slices.SortStableFunc(rows, func(a, b ItemRow) int {
		return cmp.Or(cmp.Compare(b.Qty, a.Qty), cmp.Compare(b.TotalAmount, a.TotalAmount))
	})
	return rows
}
