// Package receipt renders projected sales as fixed-width till receipts.
package receipt

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// DefaultWidth fits an 80mm thermal roll.
const DefaultWidth = 42

// Shop is printed at the top of every receipt.
type Shop struct {
	Name    string
	Address string
	Phone   string
}

// Renderer lays out receipts as plain text.
type Renderer struct {
	Shop     Shop
	Currency string
	Width    int
	Location *time.Location
}

func (r Renderer) width() int {
	if r.Width < 24 {
		return DefaultWidth
	}
	return r.Width
}

// Text renders the receipt as newline-terminated lines.
func (r Renderer) Text(rc pricing.Receipt) string {
	return strings.Join(r.Lines(rc), "\n") + "\n"
}

// Lines renders the receipt one printed line per element.
func (r Renderer) Lines(rc pricing.Receipt) []string {
	w := r.width()
	rule := strings.Repeat("-", w)
	money := func(m pricing.Money) string { return pricing.Format(m, r.Currency) }

	var out []string
	for _, h := range []string{r.Shop.Name, r.Shop.Address, r.Shop.Phone} {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, center(h, w))
		}
	}
	customer := rc.CustomerID
	if customer == "" {
		customer = "Walk-in"
	}
	out = append(out,
		rule,
		row("Invoice", "#"+rc.SaleID, w),
		row("Date", r.date(rc.SaleDate), w),
		row("Cashier", rc.CashierID, w),
		row("Customer", customer, w),
		rule,
		row("Item", "Total", w),
		rule,
	)
	for _, l := range rc.Lines {
		out = append(out, row(l.Name, money(l.Total), w))
		out = append(out, "  "+money(l.OriginalUnitPrice)+" x "+strconv.Itoa(l.Qty))
		if l.DiscountTotal > 0 {
			out = append(out, "  Disc: "+money(l.DiscountTotal))
		}
	}
	out = append(out,
		rule,
		row("Original Total", money(rc.OriginalTotal), w),
		row("Item Count", strconv.Itoa(rc.ItemCount), w),
		row("Item Discounts", "-"+money(rc.ItemDiscounts), w),
		row("Sub Total", money(rc.Subtotal), w),
	)
	if rc.OrderDiscountPct > 0 {
		out = append(out,
			row("Order Discount(%)", strconv.FormatFloat(rc.OrderDiscountPct, 'f', -1, 64)+" %", w),
			row("Order Discount", "-"+money(rc.OrderDiscount), w),
		)
	}
	out = append(out,
		rule,
		row("Grand Total", money(rc.GrandTotal), w),
		rule,
		row("Pay Amount", money(rc.PaymentAmount), w),
		row("Balance", money(rc.Balance), w),
		"",
		center("Thank you for your purchase!", w),
	)
	return out
}

var saleDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", time.DateOnly}

// date prints a stored sale date as local wall time. Unparseable values are
// printed as stored.
func (r Renderer) date(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range saleDateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if r.Location != nil && layout == time.RFC3339Nano {
			t = t.In(r.Location)
		}
		if layout == time.DateOnly {
			return t.Format(time.DateOnly)
		}
		return t.Format("2006-01-02 15:04")
	}
	return raw
}

// cells is the number of terminal columns s occupies; East Asian wide and
// fullwidth runes take two.
func cells(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// truncate cuts s to at most n columns.
func truncate(s string, n int) string {
	used := 0
	for i, r := range s {
		c := cells(string(r))
		if used+c > n {
			return s[:i]
		}
		used += c
	}
	return s
}

// row puts left and right on one line, right-aligned, shortening left when
// both do not fit.
func row(left, right string, w int) string {
	gap := w - cells(right) - 1
	if gap < 1 {
		return truncate(right, w)
	}
	left = truncate(left, gap)
	return left + strings.Repeat(" ", w-cells(left)-cells(right)) + right
}

func center(s string, w int) string {
	s = truncate(s, w)
	pad := (w - cells(s)) / 2
	return strings.Repeat(" ", pad) + s
}
