package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCents converts a decimal string amount in major units (e.g.
// "99.00" = $99.00) to cents. Examples: "99.00" → 9900, "1234.56" →
// 123456, "" → 0.
func ParseCents(s string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ParseMinorUnits converts a string amount already expressed in minor
// units (e.g. "8900" = 8900 cents) to cents, truncating any fractional
// remainder. Examples: "8900" → 8900, "123456" → 123456, "" → 0.
func ParseMinorUnits(s string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.IntPart()
}
