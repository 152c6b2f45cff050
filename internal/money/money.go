// Package money converts kobo amounts to naira for display and for the classifier.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// KoboToNaira returns the naira value of an amount in kobo.
func KoboToNaira(kobo int64) decimal.Decimal {
	return decimal.NewFromInt(kobo).Div(hundred)
}

// NairaString renders kobo as a plain naira string with two decimals, e.g. "5499.00".
func NairaString(kobo int64) string {
	return KoboToNaira(kobo).StringFixed(2)
}

// FormatNaira renders kobo as a grouped currency string, e.g. "₦12,500.75".
func FormatNaira(kobo int64) string {
	s := KoboToNaira(kobo).Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if kobo < 0 {
		b.WriteString("-")
	}
	b.WriteString("₦")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// PercentChange returns (current-previous)/previous*100. previous must be non-zero.
func PercentChange(previous, current int64) float64 {
	pct, _ := decimal.NewFromInt(current - previous).
		Div(decimal.NewFromInt(previous)).
		Mul(hundred).
		Float64()
	return pct
}
