// Package currency renders revenue amounts with Indian-style magnitude
// suffixes (K for thousands, L for lakhs, Cr for crores) or as full
// comma-grouped figures.
package currency

import (
	"github.com/shopspring/decimal"
)

var (
	crore    = decimal.NewFromInt(10_000_000)
	lakh     = decimal.NewFromInt(100_000)
	thousand = decimal.NewFromInt(1_000)
)

const places = 2

// Format picks the largest suffix whose threshold the magnitude reaches.
// The sign of negative amounts is kept in front of the scaled value.
func Format(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + Format(amount.Neg())
	}

	switch {
	case amount.GreaterThanOrEqual(crore):
		return amount.Div(crore).StringFixed(places) + "Cr"
	case amount.GreaterThanOrEqual(lakh):
		return amount.Div(lakh).StringFixed(places) + "L"
	case amount.GreaterThanOrEqual(thousand):
		return amount.Div(thousand).StringFixed(places) + "K"
	default:
		return amount.StringFixed(places)
	}
}

func FormatFloat(amount float64) string {
	return Format(decimal.NewFromFloat(amount))
}

func WithSymbol(symbol string, amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + symbol + Format(amount.Neg())
	}
	return symbol + Format(amount)
}

// Grouped writes the full amount with comma thousands separators and two
// decimals, as in 1,234,567.89. Ranking tables use it instead of suffixes.
func Grouped(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + Grouped(amount.Neg())
	}
	fixed := amount.StringFixed(places)
	whole, frac := fixed[:len(fixed)-places-1], fixed[len(fixed)-places-1:]
	return GroupInt(whole) + frac
}

func GroupedWithSymbol(symbol string, amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + symbol + Grouped(amount.Neg())
	}
	return symbol + Grouped(amount)
}

// GroupInt inserts commas every three digits of an unsigned digit string.
func GroupInt(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b := make([]byte, 0, len(digits)+len(digits)/3)
	b = append(b, digits[:head]...)
	for i := head; i < len(digits); i += 3 {
		b = append(b, ',')
		b = append(b, digits[i:i+3]...)
	}
	return string(b)
}
