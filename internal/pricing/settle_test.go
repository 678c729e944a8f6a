package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettleCashGate(t *testing.T) {
	grand := Units(100)

	s := Settle(grand, Round2(99.99), Cash)
	require.False(t, s.Sufficient)
	require.Equal(t, Money(0), s.Balance)
	require.True(t, errors.Is(s.Err(), ErrInsufficientPayment))

	s = Settle(grand, Units(100), Cash)
	require.True(t, s.Sufficient)
	require.Equal(t, "0.00", s.Balance.String())

	s = Settle(grand, Units(150), Cash)
	require.True(t, s.Sufficient)
	require.Equal(t, "50.00", s.Balance.String())
}

func TestSettleNonCashAlwaysSufficient(t *testing.T) {
	for _, m := range []PaymentMethod{Card, Other} {
		s := Settle(Units(100), 0, m)
		require.True(t, s.Sufficient)
		require.Equal(t, Money(0), s.Balance)
		require.NoError(t, s.Err())
	}
}

func TestSettleZeroGrandTotal(t *testing.T) {
	for _, m := range []PaymentMethod{Cash, Card, Other} {
		require.True(t, Settle(0, 0, m).Sufficient)
	}
}

func TestSettleNegativeTender(t *testing.T) {
	s := Settle(Units(10), -Units(5), Cash)
	require.Equal(t, Money(0), s.Tendered)
	require.False(t, s.Sufficient)
}

func TestCheckoutBlock(t *testing.T) {
	empty := Cart{}
	require.ErrorIs(t, CheckoutBlock(empty, Settle(0, 0, Cash)), ErrEmptyCart)
	require.False(t, CanCheckout(empty, Settle(0, 0, Card)))

	c, _ := Cart{}.Add(Product{ID: "a", UnitPrice: Units(10), AvailableQty: 1}, 1, Units(10))
	totals := c.Totals(0)
	require.Equal(t, Money(0), totals.GrandTotal)
	require.True(t, CanCheckout(c, Settle(totals.GrandTotal, 0, Cash)))

	c, _ = Cart{}.Add(Product{ID: "a", UnitPrice: Units(10), AvailableQty: 1}, 1, 0)
	require.ErrorIs(t, CheckoutBlock(c, Settle(Units(10), Units(5), Cash)), ErrInsufficientPayment)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod(" card ")
	require.NoError(t, err)
	require.Equal(t, Card, m)

	m, err = ParsePaymentMethod("")
	require.NoError(t, err)
	require.Equal(t, Cash, m)

	_, err = ParsePaymentMethod("bitcoin")
	require.ErrorIs(t, err, ErrUnknownPaymentMethod)
}
