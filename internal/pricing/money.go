package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money represents a monetary value stored in minor units (cents).
type Money int64

const minorPerUnit = 100

var (
	hundred  = decimal.NewFromInt(minorPerUnit)
	minMinor = decimal.NewFromInt(math.MinInt64)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// Round2 rounds x half away from zero to two decimals.
func Round2(x float64) Money {
	return FromDecimal(decimal.NewFromFloat(x))
}

// FromDecimal converts a decimal amount in major units into Money, rounding
// half away from zero at the second fractional digit. Amounts beyond the
// int64 range saturate at its bounds.
func FromDecimal(d decimal.Decimal) Money {
	minor := d.Mul(hundred).Round(0)
	switch {
	case minor.LessThan(minMinor):
		return math.MinInt64
	case minor.GreaterThan(maxMinor):
		return math.MaxInt64
	}
	return Money(minor.IntPart())
}

// CheckedFromDecimal is FromDecimal for untrusted input: it reports false
// instead of saturating when the amount does not fit in int64 minor units.
func CheckedFromDecimal(d decimal.Decimal) (Money, bool) {
	minor := d.Mul(hundred).Round(0)
	if minor.LessThan(minMinor) || minor.GreaterThan(maxMinor) {
		return 0, false
	}
	return Money(minor.IntPart()), true
}

// FromMinor wraps an integer amount already expressed in minor units.
func FromMinor(minor int64) Money { return Money(minor) }

// Units builds Money from whole major units.
func Units(n int64) Money { return Money(n * minorPerUnit) }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Float64 returns the amount in major units as a float, for display only.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Minor returns the raw minor-unit amount.
func (m Money) Minor() int64 { return int64(m) }

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int) Money { return m * Money(qty) }

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Null decodes as zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	var f Field
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	if !f.Present() {
		*m = 0
		return nil
	}
	v, ok := f.Money()
	if !ok {
		return fmt.Errorf("pricing: invalid money value %s", string(data))
	}
	*m = v
	return nil
}

// Clamp returns lo if x < lo, hi if x > hi, x otherwise.
func Clamp(x, lo, hi Money) Money {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxMoney(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

var displayPrinter = message.NewPrinter(language.English)

// Format renders m as "<symbol> <amount>" using the English symbol of the ISO
// currency code. Codes that cannot be resolved fall back to "<CODE> <amount>".
func Format(m Money, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	amount := m.String()
	unit, err := currency.ParseISO(code)
	if err != nil {
		if code == "" {
			return amount
		}
		return code + " " + amount
	}
	symbol := strings.TrimSpace(displayPrinter.Sprint(currency.Symbol(unit)))
	if symbol == "" {
		symbol = code
	}
	return symbol + " " + amount
}
