// Package types - Quote money types
package types

import "github.com/shopspring/decimal"

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// Symbol returns the display symbol for the currency
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR, "":
		return "€"
	default:
		return string(c)
	}
}

// Percent converts a percentage such as 19 into the factor 0.19.
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(decimal.NewFromInt(100))
}
