// Package format renders report numbers for display.
package format

import (
	"fmt"

	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Probability renders a probability with three decimals (e.g., "0.812").
func Probability(p float64) string {
	return fmt.Sprintf("%.3f", p)
}

// SampleSize renders a sample size rounded to a whole subject with thousands
// separators (e.g., "10,900").
func SampleSize(n float64) string {
	return printer.Sprintf("%.0f", n)
}

// OptionalSampleSize renders a sample size, or the not-available marker when n is nil.
func OptionalSampleSize(n *float64) string {
	if n == nil {
		return constants.NotAvailable
	}
	return SampleSize(*n)
}

// PlainSampleSize renders a sample size with one decimal and no separators,
// for machine-readable output.
func PlainSampleSize(n *float64) string {
	if n == nil {
		return constants.NotAvailable
	}
	return fmt.Sprintf("%.1f", *n)
}
