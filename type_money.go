package forecast

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Money represents a monetary value with exact decimal arithmetic.
//
// Amounts are currency-less inside the engine (the forecast operates in a
// single reporting currency); the currency only matters at the formatting
// boundary, see Display.
type Money struct {
	value decimal.Decimal // as major unit value
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Money {
	return Money{value: newDecimal(value)}
}

func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg()} }
func (m Money) Add(n Money) Money               { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money               { return Money{value: m.value.Sub(n.value)} }
func (m Money) MulFloat(f float64) Money        { return Money{value: m.value.Mul(newDecimal(f))} }

// DivInt divides the amount evenly by n. n must not be zero.
func (m Money) DivInt(n int) Money { return Money{value: m.value.Div(decimal.NewFromInt(int64(n)))} }

// Float64 returns the closest float64 approximation of the amount.
// Used only at the KPI boundary; the engine keeps exact decimals.
func (m Money) Float64() float64 { return m.value.InexactFloat64() }

// String returns the plain decimal representation rounded to cents.
func (m Money) String() string { return m.value.Round(2).String() }

// Display formats the amount with the given ISO currency code, e.g. "USD".
func (m Money) Display(currency string) string {
	cur := *money.New(0, currency).Currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

// SignedString returns the string representation of the money value with a sign.
// 0 is represented as "-".
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

func (m Money) MarshalJSON() ([]byte, error) { return m.value.Round(2).MarshalJSON() }

func (m *Money) UnmarshalJSON(b []byte) error { return m.value.UnmarshalJSON(b) }
