// Package mathutil provides the numeric fallback helpers used by the
// simulator. Each helper maps an undefined result (NaN, ±Inf, a zero
// denominator) to a caller-defined fallback instead of propagating it.
package mathutil

import (
	"math"

	"github.com/iwvelando/adaptive-trial/pkg/constants"
)

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// FiniteOr returns val when it is finite, fallback otherwise.
func FiniteOr(val, fallback float64) float64 {
	if IsFinite(val) {
		return val
	}
	return fallback
}

// SafeDivide divides num by den and returns fallback when the quotient is
// undefined.
func SafeDivide(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return FiniteOr(num/den, fallback)
}

// SafeLog returns ln(val), or fallback when val is not strictly positive or
// the logarithm is not finite.
func SafeLog(val, fallback float64) float64 {
	if !(val > 0) {
		return fallback
	}
	return FiniteOr(math.Log(val), fallback)
}

// IsOpenProbability reports whether p lies strictly inside (0, 1).
func IsOpenProbability(p float64) bool {
	return p > 0 && p < 1
}

// ProbabilityOr returns p when it is a valid open probability, fallback otherwise.
func ProbabilityOr(p, fallback float64) float64 {
	if IsOpenProbability(p) {
		return p
	}
	return fallback
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// ProbabilitiesClose compares two probabilities using the shared tolerance.
func ProbabilitiesClose(p1, p2 float64) bool {
	return WithinTolerance(p1, p2, constants.ProbabilityTolerance)
}

// Fraction returns count/total, or 0 when total is zero.
func Fraction(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	return SafeDivide(value, total, 0) * constants.PercentageMultiplier
}
