// Package core provides the expense domain: records, categories, users and
// amount parsing.
//
// Amounts are decimal values; this file parses them from user input and
// formats them for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept on parsed amounts.
const AmountScale = 2

// MaxAmount is the largest amount that fits the NUMERIC(14,2) column.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// ParseAmount converts a decimal string to an amount with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and thousands separators are rejected. Zero is a valid amount;
// anything above MaxAmount is not.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
//	ParseAmount("12.344") -> 12.34, nil (rounds down)
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return NormalizeAmount(d)
}

// NormalizeAmount applies the same rules as ParseAmount to an already
// decoded value.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(AmountScale)
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
