package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func decodeSale(t *testing.T, raw string) SaleRecord {
	t.Helper()
	var rec SaleRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func TestProjectMissingOrderDiscount(t *testing.T) {
	rec := decodeSale(t, `{"saleId":12,"subtotal":"1900.00","orderDiscount":null,"orderDiscountPercentage":0,"saleItems":[]}`)
	r := Project(rec)
	require.Equal(t, "12", r.SaleID)
	require.Equal(t, "1900.00", r.Subtotal.String())
	require.Equal(t, "0.00", r.OrderDiscount.String())
	require.Equal(t, "1900.00", r.GrandTotal.String())
	require.Contains(t, r.Derived, "orderDiscount")
	require.NotContains(t, r.Derived, "subtotal")
}

func TestProjectPrefersPersistedValues(t *testing.T) {
	rec := decodeSale(t, `{
		"saleId": "77", "paymentMethod": "CASH", "userId": 4,
		"originalTotal": 2000, "itemDiscounts": "100", "subtotal": 1900,
		"orderDiscountPercentage": "10", "orderDiscount": 190, "totalAmount": "1710.00",
		"paymentAmount": 2000, "balance": 290,
		"saleItems": [
			{"productId": 1, "qty": 2, "price": 450, "discount": 50, "totalPrice": 900, "productName": "Rice"},
			{"productId": 2, "qty": "1", "price": "1000.00", "discount": 0}
		]
	}`)
	r := Project(rec)
	require.Empty(t, r.Derived)
	require.Equal(t, "1710.00", r.GrandTotal.String())
	require.Equal(t, "290.00", r.Balance.String())
	require.Equal(t, "4", r.CashierID)
	require.Equal(t, 3, r.ItemCount)
	require.Len(t, r.Lines, 2)
	require.Equal(t, "Rice", r.Lines[0].Name)
	require.Equal(t, "500.00", r.Lines[0].OriginalUnitPrice.String())
	require.Equal(t, "100.00", r.Lines[0].DiscountTotal.String())
	require.Equal(t, "Item 2", r.Lines[1].Name)
	require.Equal(t, "1000.00", r.Lines[1].Total.String())
	require.Equal(t, "290.00", r.TotalDiscount().String())
}

func TestProjectDerivesFromItems(t *testing.T) {
	rec := decodeSale(t, `{
		"orderDiscountPercentage": 10, "paymentAmount": "2000",
		"saleItems": [
			{"productId": 1, "qty": 2, "price": 450, "discount": 50},
			{"productId": 2, "qty": 1, "price": 1000, "discount": "oops"}
		]
	}`)
	r := Project(rec)
	require.Equal(t, "2000.00", r.OriginalTotal.String())
	require.Equal(t, "100.00", r.ItemDiscounts.String())
	require.Equal(t, "1900.00", r.Subtotal.String())
	require.Equal(t, "190.00", r.OrderDiscount.String())
	require.Equal(t, "1710.00", r.GrandTotal.String())
	require.Equal(t, "290.00", r.Balance.String())
	require.ElementsMatch(t, []string{"originalTotal", "itemDiscounts", "subtotal", "orderDiscount", "grandTotal", "balance"}, r.Derived)
}

func TestProjectRejectsOversizedNumbers(t *testing.T) {
	r := Project(decodeSale(t, `{"saleItems":[{"qty":"1e30","price":"10"}]}`))
	require.Equal(t, 0, r.ItemCount)
	require.Equal(t, Money(0), r.GrandTotal)

	r = Project(decodeSale(t, `{"totalAmount":"100000000000000000","saleItems":[{"qty":2,"price":"1e17"},{"qty":1,"price":5}]}`))
	require.Equal(t, 3, r.ItemCount)
	require.Equal(t, Units(5), r.GrandTotal)
	require.Contains(t, r.Derived, "grandTotal")
}

func TestProjectEmptyRendersZeros(t *testing.T) {
	r := Project(decodeSale(t, `{"subtotal":"NaN","totalAmount":"","saleItems":null}`))
	require.Equal(t, Money(0), r.OriginalTotal)
	require.Equal(t, Money(0), r.Subtotal)
	require.Equal(t, Money(0), r.OrderDiscount)
	require.Equal(t, Money(0), r.GrandTotal)
	require.Equal(t, Money(0), r.Balance)
	require.Empty(t, r.Lines)
}

func TestProjectFractionalPercentage(t *testing.T) {
	r := Project(decodeSale(t, `{"subtotal":200,"orderDiscountPercentage":0.1,"orderDiscount":20}`))
	require.Equal(t, float64(10), r.OrderDiscountPct)

	r = Project(decodeSale(t, `{"subtotal":200,"orderDiscountPercentage":0.5}`))
	require.Equal(t, 0.5, r.OrderDiscountPct)
	require.Equal(t, "1.00", r.OrderDiscount.String())

	r = Project(decodeSale(t, `{"subtotal":200,"orderDiscountPercentage":"250"}`))
	require.Equal(t, float64(100), r.OrderDiscountPct)
	require.Equal(t, "200.00", r.OrderDiscount.String())
}

func TestCoerceNumber(t *testing.T) {
	valid := []any{json.Number("1.5"), 1.5, float32(1.5), " 1.5 ", decimal.RequireFromString("1.5"), Money(150)}
	for _, v := range valid {
		d, ok := CoerceNumber(v)
		require.True(t, ok, "%#v", v)
		require.True(t, d.Equal(decimal.RequireFromString("1.5")), "%#v -> %s", v, d)
	}
	d, ok := CoerceNumber(int64(42))
	require.True(t, ok)
	require.Equal(t, int64(42), d.IntPart())

	invalid := []any{nil, "", "  ", "abc", true, math.NaN(), math.Inf(1), []int{1}, map[string]any{}}
	for _, v := range invalid {
		_, ok := CoerceNumber(v)
		require.False(t, ok, "%#v", v)
	}
}

func TestFieldMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Field `json:"a"`
		B Field `json:"b"`
	}{A: FieldOf("12.50"), B: Field{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":12.5,"b":null}`, string(data))
}
