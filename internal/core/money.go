// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from spreadsheet
// cells and formatting them for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ParseAmount converts a cell value to a decimal amount.
//
// It tolerates a leading currency symbol, thousands separators and
// accounting-style parentheses for negatives. Blank or malformed cells yield
// an invalid NullDecimal so they can be skipped by sums and excluded by
// range filters.
//
// Examples:
//   ParseAmount("1,234.50")  -> 1234.50
//   ParseAmount("$-12.3")    -> -12.30
//   ParseAmount("(45.10)")   -> -45.10
//   ParseAmount("n/a")       -> invalid
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	if neg {
		d = d.Neg()
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// FormatCurrency renders an amount as dollars with two decimals and
// thousands grouping, e.g. "$1,234.56" or "-$12.00".
func FormatCurrency(d decimal.Decimal) string {
	f := d.Round(2).InexactFloat64()
	if f < 0 {
		return "-$" + printer.Sprintf("%.2f", -f)
	}
	return "$" + printer.Sprintf("%.2f", f)
}

// FormatCount renders an integer with thousands grouping.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
