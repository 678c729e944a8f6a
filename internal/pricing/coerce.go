package pricing

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	minCount = decimal.NewFromInt(math.MinInt32)
	maxCount = decimal.NewFromInt(math.MaxInt32)
)

// CoerceNumber converts a loosely typed persisted value into a decimal.
//
// Accepted, in order: json.Number, decimal.Decimal, Money, native integer and
// float kinds, and strings holding a decimal literal (surrounding spaces are
// ignored). nil, empty strings, booleans, NaN, infinities and anything else
// report false.
func CoerceNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case json.Number:
		return parseDecimal(n.String())
	case decimal.Decimal:
		return n, true
	case Money:
		return n.Decimal(), true
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case string:
		return parseDecimal(n)
	case *string:
		if n == nil {
			return decimal.Zero, false
		}
		return parseDecimal(*n)
	default:
		return decimal.Zero, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Field is a persisted numeric value as echoed by the sale store. It may be a
// number, a numeric string, null, or absent; decoding never fails on type.
type Field struct {
	raw any
	set bool
}

// FieldOf wraps an in-process value.
func FieldOf(v any) Field { return Field{raw: v, set: v != nil} }

// UnmarshalJSON keeps the decoded value for later coercion.
func (f *Field) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	f.raw = v
	f.set = v != nil
	return nil
}

// MarshalJSON writes the coerced number or null.
func (f Field) MarshalJSON() ([]byte, error) {
	d, ok := f.Decimal()
	if !ok {
		return []byte("null"), nil
	}
	return []byte(d.String()), nil
}

// Present reports whether a non-null value was supplied.
func (f Field) Present() bool { return f.set }

// Decimal returns the value when present and parseable as a finite number.
func (f Field) Decimal() (decimal.Decimal, bool) {
	if !f.set {
		return decimal.Zero, false
	}
	return CoerceNumber(f.raw)
}

// Money returns the value rounded to minor units.
func (f Field) Money() (Money, bool) {
	d, ok := f.Decimal()
	if !ok {
		return 0, false
	}
	return CheckedFromDecimal(d)
}

// Float returns the value as a float64.
func (f Field) Float() (float64, bool) {
	d, ok := f.Decimal()
	if !ok {
		return 0, false
	}
	v, _ := d.Float64()
	return v, true
}

// Int returns the value truncated to an integer. Values outside the int32
// range are rejected; quantities that large are corrupt data.
func (f Field) Int() (int, bool) {
	d, ok := f.Decimal()
	if !ok {
		return 0, false
	}
	d = d.Truncate(0)
	if d.LessThan(minCount) || d.GreaterThan(maxCount) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// Text renders the value as an identifier: numbers in canonical decimal form,
// other strings verbatim, and absent values as "".
func (f Field) Text() string {
	if !f.set {
		return ""
	}
	if d, ok := f.Decimal(); ok {
		return d.String()
	}
	if s, ok := f.raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
