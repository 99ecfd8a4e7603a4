package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places using decimal arithmetic, so the
// validator's expected values and the generators' serialized amounts agree.
// NaN survives rounding unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatAmount renders a monetary value with exactly 2 decimal places.
func FormatAmount(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// FormatRate renders a tax rate, trimming trailing zeros ("19", "7.7").
func FormatRate(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return decimal.NewFromFloat(v).String()
}

// Sum adds values with decimal arithmetic. Any NaN input poisons the result.
func Sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}

// WithinTolerance reports whether a and b differ by at most tol.
// NaN on either side is never within tolerance.
func WithinTolerance(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) <= tol
}
