// Package matrix parses, validates and queries solar system price matrices.
//
// A matrix is a grid keyed by module count (rows) and storage model (columns),
// with the trailing "Ohne Speicher" column holding prices without storage.
// Parsing and lookups never fail on malformed input; they return findings,
// human-readable strings the caller inspects to decide what is fatal.
package matrix

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"solar-pricing/core/types"
)

// ParseLocaleNumber parses a German formatted number such as "13.711,80".
// Periods are thousands separators and the comma is the decimal separator.
// It returns a missing value and false when the text is not a number.
func ParseLocaleNumber(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return types.Missing(), false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.Missing(), false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return types.Missing(), false
	}
	return f, true
}

// maxModuleCount bounds index values; anything larger is not a module count
// and would not convert to int reliably.
const maxModuleCount = 1 << 31

// wholeNumber converts a parsed index value to a module count.
// Missing, fractional and out-of-range values are rejected.
func wholeNumber(v float64) (int, bool) {
	if types.IsMissing(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v >= maxModuleCount || v <= -maxModuleCount {
		return 0, false
	}
	return int(v), true
}
