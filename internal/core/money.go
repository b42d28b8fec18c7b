// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing amounts from ledger cells and
// formatting decimal amounts in a display currency.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no valid currency is configured.
const DefaultCurrency = money.USD

// ParseAmount converts a raw amount cell into a nullable decimal.
//
// Missing tokens and text that is not a decimal number yield an invalid value.
// Signs are kept: refunds and credits are negative amounts.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, valid
//	ParseAmount("-5")     -> -5, valid
//	ParseAmount("NaN")    -> invalid
//	ParseAmount("twelve") -> invalid
func ParseAmount(s string) decimal.NullDecimal {
	if IsMissing(s) {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// FormatAmount renders d in the given currency, e.g. "$1,234.56".
// Amounts are rounded half-up to the currency's minor unit.
func FormatAmount(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
