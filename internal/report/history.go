package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// HistorySource lists the sales rung up by one cashier.
type HistorySource interface {
	SalesByUser(ctx context.Context, userID string) ([]pricing.SaleRecord, error)
}

// HistoryFilter narrows a cashier's sales history.
type HistoryFilter struct {
	// Method keeps one payment method, compared case-insensitively. Empty
	// or "all" keeps every sale.
	Method string
	// Today keeps sales dated today in the shop's timezone.
	Today bool
	// Query keeps sales whose id contains it.
	Query string
}

func (f HistoryFilter) keep(row SaleRow, today string) bool {
	if m := strings.TrimSpace(f.Method); m != "" && !strings.EqualFold(m, "all") && !strings.EqualFold(m, row.PaymentMethod) {
		return false
	}
	if f.Today && !strings.HasPrefix(row.SaleDate, today) {
		return false
	}
	return strings.Contains(row.SaleID, strings.TrimSpace(f.Query))
}

// History returns userID's own sales, newest first, with a summary of the
// rows that passed the filter. It is never cached; a cashier expects the sale
// just completed to show up.
func (s *Service) History(ctx context.Context, userID string, f HistoryFilter) (SalesReport, error) {
	if s.ByCashier == nil {
		return SalesReport{}, errors.New("sales history not configured")
	}
	records, err := s.ByCashier.SalesByUser(ctx, userID)
	if err != nil {
		return SalesReport{}, fmt.Errorf("sales by user: %w", err)
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	today := s.now().In(loc).Format(time.DateOnly)

	rows := []SaleRow{}
	for _, row := range BuildSales(records).Rows {
		if f.keep(row, today) {
			rows = append(rows, row)
		}
	}
	slices.Reverse(rows)
	return SalesReport{Rows: rows, Summary: summarize(rows)}, nil
}
