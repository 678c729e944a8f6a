package pricing

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	require.Equal(t, Money(101), Round2(1.005))
	require.Equal(t, Money(-101), Round2(-1.005))
	require.Equal(t, Money(3), Round2(0.025))
	require.Equal(t, Money(1234), Round2(12.344))
	require.Equal(t, Money(0), Round2(0))
}

func TestMoneyString(t *testing.T) {
	require.Equal(t, "1900.00", Units(1900).String())
	require.Equal(t, "0.05", Money(5).String())
	require.Equal(t, "-0.50", Money(-50).String())
}

func TestClamp(t *testing.T) {
	require.Equal(t, Money(0), Clamp(-5, 0, 10))
	require.Equal(t, Money(10), Clamp(50, 0, 10))
	require.Equal(t, Money(7), Clamp(7, 0, 10))
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		V Money `json:"v"`
	}{V: Round2(12.5)})
	require.NoError(t, err)
	require.Equal(t, `{"v":12.50}`, string(data))

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"19.995","b":3,"c":null}`), &in))
	require.Equal(t, Money(2000), in.A)
	require.Equal(t, Units(3), in.B)
	require.Equal(t, Money(0), in.C)

	require.Error(t, json.Unmarshal([]byte(`{"a":"abc"}`), &in))
}

func TestMoneyOutOfRange(t *testing.T) {
	var m Money
	require.Error(t, json.Unmarshal([]byte(`"100000000000000000"`), &m))
	require.Error(t, json.Unmarshal([]byte(`-1e17`), &m))
	require.NoError(t, json.Unmarshal([]byte(`"90000000000000000"`), &m))
	require.Equal(t, Money(9_000_000_000_000_000_000), m)

	_, ok := CheckedFromDecimal(decimal.RequireFromString("1e17"))
	require.False(t, ok)
	require.Equal(t, Money(math.MaxInt64), FromDecimal(decimal.RequireFromString("1e17")))
	require.Equal(t, Money(math.MinInt64), FromDecimal(decimal.RequireFromString("-1e30")))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "ZZZ 12.50", Format(Round2(12.5), "zzz"))
	require.Equal(t, "12.50", Format(Round2(12.5), ""))

	usd := Format(Units(1900), "USD")
	require.True(t, strings.HasSuffix(usd, " 1900.00"), usd)
	require.NotEqual(t, " 1900.00", usd)

	lkr := Format(Round2(0.5), "lkr")
	require.True(t, strings.HasSuffix(lkr, " 0.50"), lkr)
}
