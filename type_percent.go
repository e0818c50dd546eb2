package forecast

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a ratio where 1.0 means 100%.
type Percent float64

// Ratio returns a/b as a Percent, or 0 when b is zero. Ownership and KPI
// ratios never raise on a zero denominator.
func Ratio(a, b float64) Percent {
	if b == 0 {
		return 0
	}
	return Percent(a / b)
}

// Round returns the percent rounded to 4 decimal places, half up.
// Rounding happens only at the reporting boundary, never mid-computation.
func (p Percent) Round() Percent {
	return Percent(decimal.NewFromFloat(float64(p)).Round(4).InexactFloat64())
}

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.00001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p)*100)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p)*100)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
