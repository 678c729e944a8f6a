package cache

import "time"

// Lookup kinds reported in cache metrics.
const (
	KindProduct = "product"
	KindBarcode = "barcode"
	KindLists   = "lists"
	KindReport  = "report"
)

// KeyProduct names a cached product document.
func KeyProduct(id string) string { return "product:" + id }

// KeyBarcode maps a barcode to its product id.
func KeyBarcode(code string) string { return "barcode:" + code }

// KeyReport names a report over the inclusive day range [from, to].
func KeyReport(name string, from, to time.Time) string {
	return "report:" + name + ":" + from.Format(time.DateOnly) + ":" + to.Format(time.DateOnly)
}
