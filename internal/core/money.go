// Package core holds the statement domain: typed transaction rows, keyword
// classification, monthly aggregation and reconciliation.
//
// This file contains the decimal amount type used for every monetary cell.
// Amounts are kept as shopspring decimals so sums and rounding never pick up
// binary floating-point artifacts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary cell value that may be missing.
//
// A missing amount is not zero: it marks a cell that was empty or could not be
// parsed. Use OrZero at the points where "no signal" is allowed to become
// "no contribution".
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// MissingAmount returns the missing marker.
func MissingAmount() Amount {
	return Amount{}
}

// NewAmount wraps a valid decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromString is a convenience for tests and fixtures; it panics on bad input.
func AmountFromString(s string) Amount {
	return NewAmount(decimal.RequireFromString(s))
}

// ParseAmount coerces a raw cell into an Amount.
//
// Surrounding whitespace is ignored. Empty cells and anything that is not a
// plain decimal number (including NaN/Inf spellings and thousands separators)
// yield the missing marker.
//
// Examples:
//
//	ParseAmount("100")    -> 100
//	ParseAmount(" 12.5 ") -> 12.5
//	ParseAmount("1e3")    -> 1000
//	ParseAmount("")       -> missing
//	ParseAmount("n/a")    -> missing
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return MissingAmount()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return MissingAmount()
	}
	return NewAmount(d)
}

// OrZero returns the value, or zero when missing.
func (a Amount) OrZero() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// IsMissing reports whether the amount is the missing marker.
func (a Amount) IsMissing() bool {
	return !a.Valid
}

// String renders the amount for export; missing amounts render as "".
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return a.Value.String()
}

// Fixed renders the amount with two decimals; missing amounts render as "".
func (a Amount) Fixed() string {
	if !a.Valid {
		return ""
	}
	return a.Value.StringFixed(2)
}

// Equal compares two amounts, treating two missing markers as equal.
func (a Amount) Equal(b Amount) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Value.Equal(b.Value)
}

// Round2 rounds to two decimal places, half to even.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
