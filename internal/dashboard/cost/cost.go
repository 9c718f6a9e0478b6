// Package cost estimates the monetary cost of an LLM call from its token
// counts and the model's pricing.
package cost

import "math"

// Precision is the number of decimal places cost estimates are stored with.
// Display rounding (2 places) is the frontend's concern.
const Precision = 6

// Estimate returns the estimated cost in USD for a call:
// (prompt + completion) / 1000 × costPer1K, rounded to Precision decimals.
// It is a pure function; persisting the result is the caller's responsibility.
func Estimate(promptTokens, completionTokens int, costPer1K float64) float64 {
	total := float64(promptTokens + completionTokens)
	return Round(total / 1000.0 * costPer1K)
}

// Round rounds a cost value to the storage precision, half away from zero.
func Round(v float64) float64 {
	shift := math.Pow10(Precision)
	return math.Round(v*shift) / shift
}
