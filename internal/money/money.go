// Package money holds the cents-precision arithmetic every reconciliation
// path goes through. Values are float64 at the edges and decimal.Decimal
// inside, so sums and comparisons never depend on binary float residue.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference, in currency units, still treated as equal.
const Tolerance = 0.01

// Round rounds x to two decimal places, half away from zero. The float is
// first read through its shortest decimal representation, so 19.999999999
// becomes 20.00 and 1.005 becomes 1.01.
func Round(x float64) float64 {
	return fromFloat(x).Round(2).InexactFloat64()
}

// Equal reports whether a and b differ by at most Tolerance.
func Equal(a, b float64) bool {
	return EqualWithin(a, b, Tolerance)
}

func EqualWithin(a, b, tol float64) bool {
	diff := fromFloat(a).Sub(fromFloat(b)).Abs()
	return diff.LessThanOrEqual(fromFloat(math.Abs(tol)))
}

// Sum adds the values and rounds the result.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(fromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Sub returns a-b rounded.
func Sub(a, b float64) float64 {
	return fromFloat(a).Sub(fromFloat(b)).Round(2).InexactFloat64()
}

// Mul returns unitPrice*qty rounded.
func Mul(unitPrice float64, qty int) float64 {
	return fromFloat(unitPrice).Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}

// Clamp bounds x to [lo, hi] and rounds it. When hi < lo the result is lo.
func Clamp(x, lo, hi float64) float64 {
	if x > hi {
		x = hi
	}
	if x < lo {
		x = lo
	}
	return Round(x)
}

// Positive reports whether x is at least one cent once rounded.
func Positive(x float64) bool {
	return Round(x) > 0
}

// Format renders x with exactly two decimals.
func Format(x float64) string {
	return fromFloat(x).StringFixed(2)
}

func fromFloat(x float64) decimal.Decimal {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(x)
}
