// Package core holds the record schemas of the life balance tracker, the
// draft types that validate form input at the boundary, and the pure
// aggregates derived from a collection.
//
// This file contains parsing and formatting of monetary amounts.
package core

import (
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the currency every amount is denominated in.
const Currency = money.BRL

// MaxAmount is the largest amount a single record may carry.
var MaxAmount = decimal.New(1, 12)

// ParseAmount converts user input to a positive amount with two decimal places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and the
// grouped form the dashboard displays (R$ 1.234,50 or 1,234.50). When both
// separators appear the last one is the decimal separator; a separator
// repeated on its own groups thousands. Amounts round half away from zero on
// the third decimal place. Blank input yields ErrMissingField, malformed
// input ErrInvalidNumber, and values that are not positive or exceed
// MaxAmount ErrOutOfRange.
//
// Examples:
//
//	ParseAmount("25.50")      -> 25.5, nil
//	ParseAmount("12,345")     -> 12.35, nil
//	ParseAmount("R$1.234,50") -> 1234.5, nil
//	ParseAmount("abc")        -> 0, ErrInvalidNumber
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMissingField
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrOutOfRange
	}
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, ErrInvalidNumber
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidNumber
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrOutOfRange
	}
	return d, nil
}

// normalizeSeparators rewrites s with thousands separators removed and a dot
// as the decimal separator.
func normalizeSeparators(s string) (string, bool) {
	dot, comma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	if dot >= 0 && comma >= 0 {
		at, group := dot, ","
		if comma > dot {
			at, group = comma, "."
		}
		whole, frac := s[:at], s[at+1:]
		if strings.ContainsAny(frac, ".,") {
			return "", false
		}
		whole, ok := ungroup(whole, group)
		if !ok {
			return "", false
		}
		return whole + "." + frac, true
	}

	sep := "."
	if comma >= 0 {
		sep = ","
	}
	if strings.Count(s, sep) > 1 {
		return ungroup(s, sep)
	}
	return strings.Replace(s, ",", ".", 1), true
}

// ungroup removes sep from a digit string grouped in thousands, e.g.
// "1.234.567".
func ungroup(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	if len(parts[0]) == 0 || len(parts[0]) > 3 {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

// FormatBRL renders an amount the way the dashboard shows it, e.g. "R$1.234,50".
// Negative amounts keep their sign.
func FormatBRL(d decimal.Decimal) string {
	if cents := d.Shift(2).Round(0).BigInt(); cents.IsInt64() {
		return money.New(cents.Int64(), Currency).Display()
	}
	return formatWideBRL(d)
}

// formatWideBRL formats sums beyond the int64 cents go-money works with.
func formatWideBRL(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("R$")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
